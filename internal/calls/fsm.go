// Package calls tracks placed voice calls through asynchronous provider
// callbacks.
package calls

import (
	"strings"

	"github.com/xiaot623/lifeline/internal/domain"
)

// transitions lists the states reachable from each state. Callbacks can be
// lost, so a call may skip straight from initiated to a terminal state.
var transitions = map[domain.CallState][]domain.CallState{
	domain.CallStateInitiated: {
		domain.CallStateRinging,
		domain.CallStateAnswered,
		domain.CallStateCompleted,
		domain.CallStateFailed,
		domain.CallStateNoAnswer,
		domain.CallStateBusy,
	},
	domain.CallStateRinging: {
		domain.CallStateAnswered,
		domain.CallStateCompleted,
		domain.CallStateFailed,
		domain.CallStateNoAnswer,
		domain.CallStateBusy,
	},
	domain.CallStateAnswered: {
		domain.CallStateCompleted,
		domain.CallStateFailed,
	},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to domain.CallState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MapProviderStatus converts a provider call status into a CallState.
func MapProviderStatus(status string) (domain.CallState, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "initiated":
		return domain.CallStateInitiated, true
	case "ringing":
		return domain.CallStateRinging, true
	case "in-progress", "answered":
		return domain.CallStateAnswered, true
	case "completed":
		return domain.CallStateCompleted, true
	case "busy":
		return domain.CallStateBusy, true
	case "failed", "canceled":
		return domain.CallStateFailed, true
	case "no-answer":
		return domain.CallStateNoAnswer, true
	}
	return "", false
}
