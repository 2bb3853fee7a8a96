// Package domain defines the core domain models for crisis scoring and alert delivery.
package domain

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CrisisLevel is the ordinal bucket derived from a crisis score.
type CrisisLevel string

const (
	CrisisLevelNone     CrisisLevel = "none"
	CrisisLevelLow      CrisisLevel = "low"
	CrisisLevelMedium   CrisisLevel = "medium"
	CrisisLevelHigh     CrisisLevel = "high"
	CrisisLevelCritical CrisisLevel = "critical"
)

// Channel is one of the independent delivery mechanisms attempted per contact.
type Channel string

const (
	ChannelCall Channel = "call"
	ChannelSMS  Channel = "sms"
)

// Outcome is the result of a single dispatch attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CallState represents the lifecycle state of a placed call.
type CallState string

const (
	CallStateInitiated CallState = "initiated"
	CallStateRinging   CallState = "ringing"
	CallStateAnswered  CallState = "answered"
	CallStateCompleted CallState = "completed"
	CallStateFailed    CallState = "failed"
	CallStateNoAnswer  CallState = "no-answer"
	CallStateBusy      CallState = "busy"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s CallState) IsTerminal() bool {
	switch s {
	case CallStateCompleted, CallStateFailed, CallStateNoAnswer, CallStateBusy:
		return true
	}
	return false
}

// CallEventKind distinguishes the two asynchronous provider callbacks.
type CallEventKind string

const (
	CallEventStatus CallEventKind = "status"
	CallEventDigits CallEventKind = "digits"
)
