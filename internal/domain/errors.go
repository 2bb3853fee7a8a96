package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups for unknown reports or calls.
var ErrNotFound = errors.New("not found")

// ErrUnknownCall marks a callback referencing a call id the tracker never registered.
var ErrUnknownCall = errors.New("unknown call")

// ValidationError reports malformed or missing input. No work was performed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError reports a missing provider client or credential.
// It aborts a dispatch before any attempt.
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured: %s", e.Component, e.Message)
}

// ChannelErrorKind classifies per-attempt failures.
type ChannelErrorKind string

const (
	ChannelErrorSynthesis     ChannelErrorKind = "synthesis"
	ChannelErrorAudio         ChannelErrorKind = "audio"
	ChannelErrorScript        ChannelErrorKind = "script"
	ChannelErrorCallPlacement ChannelErrorKind = "call_placement"
	ChannelErrorSMSSend       ChannelErrorKind = "sms_send"
)

// ChannelError is a failure confined to one channel of one contact.
// It is recorded on a DispatchAttempt and never aborts sibling attempts.
type ChannelError struct {
	Kind    ChannelErrorKind
	Channel Channel
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel %s error: %v", e.Channel, e.Kind, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
