// Package callscript renders the voice-call instructions handed to the
// telephony provider.
package callscript

import (
	"fmt"

	"github.com/twilio/twilio-go/twiml"
)

const (
	// Voice is used whenever text is spoken by the provider.
	Voice = "Polly.Joanna"

	MenuPrompt     = "Press 1 to hear this message again, or hang up to take action."
	ClosingMessage = "Thank you. Please take immediate action."

	// ReplayDigit is the only key press that repeats the alert.
	ReplayDigit = "1"
)

// Speech is the alert content of a call. AudioURL, when set, points at a
// synthesized rendition of Text.
type Speech struct {
	Text     string
	AudioURL string
}

// Builder renders TwiML documents whose digit menu posts to responseURL.
type Builder struct {
	responseURL string
}

// NewBuilder creates a builder.
func NewBuilder(responseURL string) *Builder {
	return &Builder{responseURL: responseURL}
}

// Build renders the full script: alert, pause, replay menu, closing, hangup.
func (b *Builder) Build(s Speech) (string, error) {
	if s.Text == "" && s.AudioURL == "" {
		return "", fmt.Errorf("call script needs text or audio")
	}

	var alert twiml.Element
	if s.AudioURL != "" {
		alert = &twiml.VoicePlay{Url: s.AudioURL}
	} else {
		alert = &twiml.VoiceSay{Message: s.Text, Voice: Voice}
	}

	doc, err := twiml.Voice([]twiml.Element{
		alert,
		&twiml.VoicePause{Length: "2"},
		&twiml.VoiceSay{Message: MenuPrompt, Voice: Voice},
		&twiml.VoiceGather{
			NumDigits: "1",
			Action:    b.responseURL,
			Method:    "POST",
			Timeout:   "5",
		},
		&twiml.VoiceSay{Message: ClosingMessage, Voice: Voice},
		&twiml.VoiceHangup{},
	})
	if err != nil {
		return "", fmt.Errorf("failed to render call script: %w", err)
	}
	return doc, nil
}

// Closing renders the short goodbye used for any non-replay key press.
func (b *Builder) Closing() (string, error) {
	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: ClosingMessage, Voice: Voice},
		&twiml.VoiceHangup{},
	})
	if err != nil {
		return "", fmt.Errorf("failed to render closing script: %w", err)
	}
	return doc, nil
}
