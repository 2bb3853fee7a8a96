// Package repository persists analyses, notification reports and call
// lifecycles.
package repository

import (
	"context"

	"github.com/xiaot623/lifeline/internal/domain"
)

// Store defines the interface for data persistence. Lookups return nil, nil
// when nothing matches.
type Store interface {
	// Crisis analyses
	SaveCrisisAnalysis(ctx context.Context, rec *domain.CrisisRecord) error
	ListCrisisAnalyses(ctx context.Context, sessionID string, limit int) ([]domain.CrisisRecord, error)

	// Notification reports and their attempts
	SaveReport(ctx context.Context, report *domain.NotificationReport) error
	GetReport(ctx context.Context, reportID string) (*domain.NotificationReport, error)

	// Call lifecycle
	SaveCallSession(ctx context.Context, session *domain.CallSession) error
	GetCallSession(ctx context.Context, callID string) (*domain.CallSession, error)
	ListCallSessions(ctx context.Context, reportID string) ([]domain.CallSession, error)
	AppendCallEvent(ctx context.Context, event *domain.CallEvent) error
	ListCallEvents(ctx context.Context, callID string) ([]domain.CallEvent, error)

	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
