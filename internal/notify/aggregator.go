package notify

import (
	"time"

	"github.com/xiaot623/lifeline/internal/domain"
)

// Aggregator folds attempts into a report, preserving their order.
type Aggregator struct {
	report domain.NotificationReport
}

// NewAggregator starts an empty report.
func NewAggregator(reportID, sessionID string, startedAt time.Time) *Aggregator {
	return &Aggregator{report: domain.NotificationReport{
		ReportID:  reportID,
		SessionID: sessionID,
		Attempts:  []domain.DispatchAttempt{},
		StartedAt: startedAt,
	}}
}

// Record appends one attempt.
func (a *Aggregator) Record(attempt domain.DispatchAttempt) {
	a.report.Attempts = append(a.report.Attempts, attempt)
}

// Report finalizes and returns a copy of the report.
func (a *Aggregator) Report(completedAt time.Time) *domain.NotificationReport {
	r := a.report
	r.Attempts = append([]domain.DispatchAttempt(nil), a.report.Attempts...)
	r.ContactsNotified = CountNotified(r.Attempts)
	r.CompletedAt = completedAt
	return &r
}

// CountNotified returns the number of distinct contacts with at least one
// successful attempt.
func CountNotified(attempts []domain.DispatchAttempt) int {
	notified := make(map[int]struct{})
	for _, a := range attempts {
		if a.Succeeded() {
			notified[a.ContactIndex] = struct{}{}
		}
	}
	return len(notified)
}
