package service

import (
	"context"
	"log"
	"strconv"

	"github.com/xiaot623/lifeline/internal/domain"
)

// HandleCallStatus applies a provider lifecycle callback. Callbacks the state
// machine rejects are logged, not reported to the provider.
func (s *Service) HandleCallStatus(ctx context.Context, cb *domain.StatusCallback) domain.CallEvent {
	duration := 0
	if cb.CallDuration != "" {
		if d, err := strconv.Atoi(cb.CallDuration); err == nil {
			duration = d
		}
	}

	ev := s.tracker.HandleStatus(ctx, cb.CallSid, cb.CallStatus, duration)
	log.Printf("INFO: call status update (sid: %s, status: %s, duration: %s, accepted: %v)", cb.CallSid, cb.CallStatus, cb.CallDuration, ev.Accepted)
	return ev
}

// HandleCallDigits answers a key press with the next call script.
func (s *Service) HandleCallDigits(ctx context.Context, cb *domain.DigitCallback) (string, error) {
	return s.tracker.HandleDigits(ctx, cb.CallSid, cb.Digits)
}
