// Package speech turns alert text into playable audio.
package speech

import (
	"context"
	"errors"
)

// ErrSynthesis marks every failure produced by a Synthesizer.
var ErrSynthesis = errors.New("speech synthesis failed")

// Synthesizer converts text into encoded audio (mp3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Ensure the providers implement Synthesizer.
var (
	_ Synthesizer = (*ElevenLabsClient)(nil)
	_ Synthesizer = (*OpenAIClient)(nil)
	_ Synthesizer = (*MockSynthesizer)(nil)
)
