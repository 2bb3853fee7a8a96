package speech

import (
	"context"
	"fmt"
	"sync"
)

// MockSynthesizer returns fake mp3 bytes and records every request.
type MockSynthesizer struct {
	mu    sync.Mutex
	texts []string

	// Err, when set, is returned (wrapped) instead of audio.
	Err error
}

// NewMockSynthesizer creates a new mock synthesizer.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

// Synthesize returns an ID3-prefixed payload derived from text.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return []byte(fmt.Sprintf("ID3[MOCK] %d chars", len(text))), nil
}

// Texts returns the texts synthesized so far.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
