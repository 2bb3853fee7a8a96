package calls

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/lifeline/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.CallState
		want     bool
	}{
		{domain.CallStateInitiated, domain.CallStateRinging, true},
		{domain.CallStateInitiated, domain.CallStateCompleted, true},
		{domain.CallStateRinging, domain.CallStateAnswered, true},
		{domain.CallStateRinging, domain.CallStateNoAnswer, true},
		{domain.CallStateAnswered, domain.CallStateCompleted, true},
		{domain.CallStateAnswered, domain.CallStateRinging, false},
		{domain.CallStateAnswered, domain.CallStateBusy, false},
		{domain.CallStateRinging, domain.CallStateInitiated, false},
		{domain.CallStateCompleted, domain.CallStateAnswered, false},
		{domain.CallStateBusy, domain.CallStateCompleted, false},
		{domain.CallStateFailed, domain.CallStateRinging, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []domain.CallState{
		domain.CallStateInitiated, domain.CallStateRinging, domain.CallStateAnswered,
		domain.CallStateCompleted, domain.CallStateFailed, domain.CallStateNoAnswer, domain.CallStateBusy,
	}
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := map[string]domain.CallState{
		"queued":      domain.CallStateInitiated,
		"initiated":   domain.CallStateInitiated,
		"ringing":     domain.CallStateRinging,
		"in-progress": domain.CallStateAnswered,
		"answered":    domain.CallStateAnswered,
		"completed":   domain.CallStateCompleted,
		"busy":        domain.CallStateBusy,
		"failed":      domain.CallStateFailed,
		"canceled":    domain.CallStateFailed,
		"no-answer":   domain.CallStateNoAnswer,
		" Ringing ":   domain.CallStateRinging,
	}
	for status, want := range tests {
		got, ok := MapProviderStatus(status)
		assert.True(t, ok, status)
		assert.Equal(t, want, got, status)
	}

	_, ok := MapProviderStatus("exploded")
	assert.False(t, ok)
}
