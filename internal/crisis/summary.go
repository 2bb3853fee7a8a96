package crisis

import (
	"fmt"
	"strings"

	"github.com/xiaot623/lifeline/internal/domain"
)

// recentContextSize is how many of the latest user turns go into a summary.
const recentContextSize = 5

// ComposeSummary builds the alert narrative for person from the analysis and
// the most recent user turns.
func ComposeSummary(person domain.Person, messages []domain.Message, analysis domain.CrisisAnalysis) string {
	recent := recentUserContent(messages, recentContextSize)

	var b strings.Builder
	fmt.Fprintf(&b, "Emergency alert for %s. ", person.Name)
	fmt.Fprintf(&b, "Crisis level: %s. ", analysis.Level)
	fmt.Fprintf(&b, "Detected indicators: %s. ", strings.Join(analysis.MatchedKeywords, ", "))
	fmt.Fprintf(&b, "Recent conversation context: %s. ", strings.Join(recent, ". "))
	b.WriteString("This person may be in immediate danger and requires urgent attention. ")
	b.WriteString("Please contact them immediately or call emergency services if you cannot reach them.")
	return b.String()
}

// ComposeCallScript wraps the narrative in the spoken greeting used on calls.
func ComposeCallScript(narrative, contactName, orgName string) string {
	if contactName == "" {
		contactName = "there"
	}
	return fmt.Sprintf("Hello %s. This is an urgent automated message from %s. "+
		"%s "+
		"Please try to contact them immediately. If you cannot reach them or believe they are in immediate danger, "+
		"please call emergency services at 911 or your local emergency number. "+
		"If you need additional support, you can contact the Suicide and Crisis Lifeline at 988 or 1-800-273-8255. "+
		"This is an automated emergency alert. Please take immediate action. Thank you.",
		contactName, orgName, narrative)
}

func recentUserContent(messages []domain.Message, n int) []string {
	var out []string
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			out = append(out, m.Content)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
