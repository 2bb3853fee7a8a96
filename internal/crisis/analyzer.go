// Package crisis scores conversation transcripts for crisis risk and composes
// the alert narrative sent to emergency contacts.
package crisis

import (
	"strings"
	"time"

	"github.com/xiaot623/lifeline/internal/domain"
)

// Tier is a group of risk phrases sharing one weight.
type Tier struct {
	Name    string
	Weight  int
	Phrases []string
}

// DefaultTiers are the phrase tiers used in production.
var DefaultTiers = []Tier{
	{
		Name:   "suicide",
		Weight: 10,
		Phrases: []string{
			"kill myself", "end my life", "want to die", "suicide", "suicidal",
			"not worth living", "better off dead", "end it all", "take my life",
			"no reason to live", "want to disappear", "harm myself",
		},
	},
	{
		Name:   "self_harm",
		Weight: 7,
		Phrases: []string{
			"hurt myself", "cut myself", "self harm", "self-harm", "injure myself",
			"pain myself", "punish myself",
		},
	},
	{
		Name:   "severe",
		Weight: 3,
		Phrases: []string{
			"can't go on", "give up", "no hope", "hopeless", "worthless",
			"burden to everyone", "everyone would be better without me",
			"can't take it anymore", "too much pain",
		},
	},
}

type pattern struct {
	phrase string
	weight int
}

// Analyzer scores transcripts. It holds no mutable state and is safe for
// concurrent use.
type Analyzer struct {
	patterns []pattern
	now      func() time.Time
}

// NewAnalyzer compiles tiers into a single phrase table, preserving tier order.
func NewAnalyzer(tiers []Tier) *Analyzer {
	a := &Analyzer{now: time.Now}
	for _, t := range tiers {
		for _, p := range t.Phrases {
			a.patterns = append(a.patterns, pattern{phrase: strings.ToLower(p), weight: t.Weight})
		}
	}
	return a
}

// NewDefaultAnalyzer returns an Analyzer over DefaultTiers.
func NewDefaultAnalyzer() *Analyzer {
	return NewAnalyzer(DefaultTiers)
}

// Analyze scores the user-authored turns of messages.
func (a *Analyzer) Analyze(messages []domain.Message) domain.CrisisAnalysis {
	blob := userText(messages)

	score := 0
	matched := make([]string, 0)
	seen := make(map[string]bool)
	if blob != "" {
		for _, p := range a.patterns {
			if !strings.Contains(blob, p.phrase) {
				continue
			}
			score += p.weight
			if !seen[p.phrase] {
				seen[p.phrase] = true
				matched = append(matched, p.phrase)
			}
		}
	}

	intervene := score >= domain.InterventionThreshold
	return domain.CrisisAnalysis{
		Score:                score,
		Level:                LevelForScore(score),
		MatchedKeywords:      matched,
		RequiresIntervention: intervene,
		IsCrisis:             intervene,
		ComputedAt:           a.now(),
	}
}

// LevelForScore maps a score onto its crisis level, checking highest first.
func LevelForScore(score int) domain.CrisisLevel {
	switch {
	case score >= domain.InterventionThreshold:
		return domain.CrisisLevelCritical
	case score >= 7:
		return domain.CrisisLevelHigh
	case score >= 4:
		return domain.CrisisLevelMedium
	case score >= 2:
		return domain.CrisisLevelLow
	default:
		return domain.CrisisLevelNone
	}
}

func userText(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role != domain.RoleUser {
			continue
		}
		parts = append(parts, strings.ToLower(m.Content))
	}
	return strings.Join(parts, " ")
}
