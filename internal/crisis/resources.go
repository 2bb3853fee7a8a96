package crisis

import "github.com/xiaot623/lifeline/internal/domain"

// ResourcesMessage accompanies the hotline list in API responses.
const ResourcesMessage = "If you are in crisis, please call 988 or text HOME to 741741"

// Resources returns the static hotline set. It has no side effects.
func Resources() domain.CrisisResources {
	return domain.CrisisResources{
		US: domain.Hotline{
			Suicide: "988",
			Crisis:  "1-800-273-8255",
			Text:    "Text HOME to 741741",
		},
		International: domain.Hotline{
			Suicide: "988",
			Crisis:  "1-800-273-8255",
		},
	}
}
