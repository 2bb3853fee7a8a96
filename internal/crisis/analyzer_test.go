package crisis

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/lifeline/internal/domain"
)

func user(content string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: content}
}

func assistant(content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content}
}

func TestAnalyzeScenarioExactSubstring(t *testing.T) {
	a := NewDefaultAnalyzer()
	got := a.Analyze([]domain.Message{
		user("I am feeling very sad today"),
		assistant("I am here to help you"),
		user("I want to end my life, I cannot go on"),
	})

	assert.Equal(t, 10, got.Score)
	assert.Equal(t, domain.CrisisLevelCritical, got.Level)
	assert.True(t, got.RequiresIntervention)
	assert.True(t, got.IsCrisis)
	assert.Equal(t, []string{"end my life"}, got.MatchedKeywords)
	assert.False(t, got.ComputedAt.IsZero())
}

func TestAnalyzeEmptyAndAssistantOnly(t *testing.T) {
	a := NewDefaultAnalyzer()

	for name, msgs := range map[string][]domain.Message{
		"nil":       nil,
		"empty":     {},
		"assistant": {assistant("do you want to die? that sounds hopeless")},
	} {
		t.Run(name, func(t *testing.T) {
			got := a.Analyze(msgs)
			assert.Equal(t, 0, got.Score)
			assert.Equal(t, domain.CrisisLevelNone, got.Level)
			assert.False(t, got.RequiresIntervention)
			assert.NotNil(t, got.MatchedKeywords)
			assert.Empty(t, got.MatchedKeywords)
		})
	}
}

func TestAnalyzeRepetitionDoesNotIncreaseScore(t *testing.T) {
	a := NewDefaultAnalyzer()
	once := a.Analyze([]domain.Message{user("I feel hopeless")})
	many := a.Analyze([]domain.Message{
		user("hopeless hopeless"),
		user("so HOPELESS"),
	})

	assert.Equal(t, 3, once.Score)
	assert.Equal(t, once.Score, many.Score)
	assert.Equal(t, []string{"hopeless"}, many.MatchedKeywords)
}

func TestAnalyzeIsCaseInsensitive(t *testing.T) {
	got := NewDefaultAnalyzer().Analyze([]domain.Message{user("I Want To DIE")})
	assert.Equal(t, 10, got.Score)
	assert.Equal(t, []string{"want to die"}, got.MatchedKeywords)
}

func TestAnalyzeOverlappingPhrasesEachCount(t *testing.T) {
	// "suicidal" does not contain "suicide".
	got := NewDefaultAnalyzer().Analyze([]domain.Message{user("i feel suicidal")})
	assert.Equal(t, []string{"suicidal"}, got.MatchedKeywords)
	assert.Equal(t, 10, got.Score)

	// "self-harm" and "harm myself" are distinct phrases in different tiers.
	got = NewDefaultAnalyzer().Analyze([]domain.Message{user("self-harm, i want to harm myself")})
	assert.ElementsMatch(t, []string{"harm myself", "self-harm"}, got.MatchedKeywords)
	assert.Equal(t, 17, got.Score)
}

func TestAnalyzeJoinsUserTurnsWithSpace(t *testing.T) {
	// A phrase split across two user turns matches through the joining space.
	got := NewDefaultAnalyzer().Analyze([]domain.Message{user("i just want to"), user("die")})
	assert.Equal(t, []string{"want to die"}, got.MatchedKeywords)
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  domain.CrisisLevel
	}{
		{0, domain.CrisisLevelNone},
		{1, domain.CrisisLevelNone},
		{2, domain.CrisisLevelLow},
		{3, domain.CrisisLevelLow},
		{4, domain.CrisisLevelMedium},
		{6, domain.CrisisLevelMedium},
		{7, domain.CrisisLevelHigh},
		{9, domain.CrisisLevelHigh},
		{10, domain.CrisisLevelCritical},
		{47, domain.CrisisLevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelForScore(tc.score), "score %d", tc.score)
	}
}

func TestAnalyzeRandomCombinations(t *testing.T) {
	a := NewDefaultAnalyzer()
	weights := map[string]int{}
	var phrases []string
	for _, tier := range DefaultTiers {
		for _, p := range tier.Phrases {
			weights[p] = tier.Weight
			phrases = append(phrases, p)
		}
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var picked []string
		for _, p := range phrases {
			if rng.Intn(6) == 0 {
				picked = append(picked, p)
			}
		}
		var msgs []domain.Message
		for _, p := range picked {
			msgs = append(msgs, user("well... "+p+" ... "+p))
			if rng.Intn(2) == 0 {
				msgs = append(msgs, assistant("noted"))
			}
		}

		got := a.Analyze(msgs)

		// Recompute with naive containment over the user blob; phrases formed
		// across turn boundaries legitimately count too.
		var turns []string
		for _, m := range msgs {
			if m.Role == domain.RoleUser {
				turns = append(turns, strings.ToLower(m.Content))
			}
		}
		blob := strings.Join(turns, " ")
		want := 0
		for _, p := range phrases {
			if strings.Contains(blob, p) {
				want += weights[p]
			}
		}
		require.Equal(t, want, got.Score, "iteration %d: %v", i, picked)
		require.Equal(t, got.Score >= domain.InterventionThreshold, got.RequiresIntervention)
		require.Equal(t, LevelForScore(got.Score), got.Level)

		seen := map[string]bool{}
		for _, k := range got.MatchedKeywords {
			require.False(t, seen[k], "duplicate keyword %q", k)
			seen[k] = true
		}
	}
}

func TestSingleSuicidePhraseTriggersIntervention(t *testing.T) {
	for _, p := range DefaultTiers[0].Phrases {
		got := NewDefaultAnalyzer().Analyze([]domain.Message{user(p)})
		assert.True(t, got.RequiresIntervention, p)
		assert.Equal(t, domain.CrisisLevelCritical, got.Level, p)
	}
}
