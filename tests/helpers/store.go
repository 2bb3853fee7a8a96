// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/repository"
)

// NewTestSQLiteStore opens a migrated in-memory store that is closed when
// the test ends.
func NewTestSQLiteStore(tb testing.TB) *repository.SQLiteStore {
	tb.Helper()

	db, err := repository.NewSQLiteStore(":memory:")
	require.NoError(tb, err, "open sqlite store")
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

// CallEvents returns the recorded callback history of a call, accepted and
// rejected alike.
func CallEvents(tb testing.TB, db *repository.SQLiteStore, callID string) []domain.CallEvent {
	tb.Helper()

	events, err := db.ListCallEvents(context.Background(), callID)
	require.NoError(tb, err, "list call events for %s", callID)
	return events
}
