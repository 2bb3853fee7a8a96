package telephony

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sent is one request observed by MockProvider.
type Sent struct {
	Kind string // "call" or "sms"
	To   string
	Body string // script for calls, text for sms
	At   time.Time
}

// MockProvider accepts every request unless a failure hook says otherwise.
type MockProvider struct {
	mu   sync.Mutex
	sent []Sent
	seq  int

	// FailCall and FailSMS, when set, may reject a request by recipient.
	FailCall func(to string) error
	FailSMS  func(to string) error
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// PlaceCall records the call and returns a queued receipt.
func (m *MockProvider) PlaceCall(ctx context.Context, req CallRequest) (*CallReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, Sent{Kind: "call", To: req.To, Body: req.Script, At: time.Now()})
	if m.FailCall != nil {
		if err := m.FailCall(req.To); err != nil {
			return nil, fmt.Errorf("failed to place call: %w", err)
		}
	}
	m.seq++
	return &CallReceipt{Sid: fmt.Sprintf("CAmock%04d", m.seq), Status: "queued"}, nil
}

// SendSMS records the message and returns a queued receipt.
func (m *MockProvider) SendSMS(ctx context.Context, req SMSRequest) (*MessageReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, Sent{Kind: "sms", To: req.To, Body: req.Body, At: time.Now()})
	if m.FailSMS != nil {
		if err := m.FailSMS(req.To); err != nil {
			return nil, fmt.Errorf("failed to send sms: %w", err)
		}
	}
	m.seq++
	return &MessageReceipt{Sid: fmt.Sprintf("SMmock%04d", m.seq), Status: "queued"}, nil
}

// Sent returns every request in arrival order.
func (m *MockProvider) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}
