package repository

import (
	"context"
	"testing"
	"time"

	"github.com/xiaot623/lifeline/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreCrisisAnalyses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	for _, score := range []int{3, 10} {
		rec := &domain.CrisisRecord{
			SessionID: "s1",
			Analysis: domain.CrisisAnalysis{
				Score:                score,
				Level:                domain.CrisisLevelCritical,
				MatchedKeywords:      []string{"end my life"},
				RequiresIntervention: score >= domain.InterventionThreshold,
				ComputedAt:           time.Now(),
			},
		}
		if err := store.SaveCrisisAnalysis(ctx, rec); err != nil {
			t.Fatalf("SaveCrisisAnalysis failed: %v", err)
		}
	}

	records, err := store.ListCrisisAnalyses(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListCrisisAnalyses failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	latest := records[0].Analysis
	if latest.Score != 10 || !latest.RequiresIntervention || !latest.IsCrisis {
		t.Fatalf("unexpected latest analysis: %+v", latest)
	}
	if len(latest.MatchedKeywords) != 1 || latest.MatchedKeywords[0] != "end my life" {
		t.Fatalf("unexpected keywords: %v", latest.MatchedKeywords)
	}

	other, err := store.ListCrisisAnalyses(ctx, "s2", 0)
	if err != nil {
		t.Fatalf("ListCrisisAnalyses failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no records for s2, got %d", len(other))
	}
}

func TestSQLiteStoreReports(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Now()
	report := &domain.NotificationReport{
		ReportID:  "rep_1",
		SessionID: "s1",
		Attempts: []domain.DispatchAttempt{
			{
				ContactIndex: 0,
				Contact:      domain.EmergencyContact{Name: "Alex", PhoneNumber: "+15551230001", Relationship: "sibling", IsPrimary: true},
				Channel:      domain.ChannelCall,
				Outcome:      domain.OutcomeFailure,
				ErrorKind:    domain.ChannelErrorCallPlacement,
				ErrorDetail:  "unreachable",
				Timestamp:    now,
			},
			{
				ContactIndex:        0,
				Contact:             domain.EmergencyContact{Name: "Alex", PhoneNumber: "+15551230001"},
				Channel:             domain.ChannelSMS,
				Outcome:             domain.OutcomeSuccess,
				ProviderReferenceID: "SM1",
				ProviderStatus:      "queued",
				Timestamp:           now,
			},
		},
		ContactsNotified: 1,
		StartedAt:        now,
		CompletedAt:      now.Add(time.Second),
	}
	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	got, err := store.GetReport(ctx, "rep_1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got == nil || got.ContactsNotified != 1 || got.SessionID != "s1" {
		t.Fatalf("unexpected report: %+v", got)
	}
	if len(got.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got.Attempts))
	}
	first := got.Attempts[0]
	if first.Channel != domain.ChannelCall || first.ErrorKind != domain.ChannelErrorCallPlacement || !first.Contact.IsPrimary {
		t.Fatalf("unexpected first attempt: %+v", first)
	}
	if got.Attempts[1].ProviderReferenceID != "SM1" || !got.Attempts[1].Succeeded() {
		t.Fatalf("unexpected second attempt: %+v", got.Attempts[1])
	}

	missing, err := store.GetReport(ctx, "nope")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil report, got %+v", missing)
	}

	// Report ids are unique.
	if err := store.SaveReport(ctx, report); err == nil {
		t.Fatalf("expected duplicate report to fail")
	}
}

func TestSQLiteStoreCallSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Now()
	cs := &domain.CallSession{
		ProviderCallID: "CA1",
		ReportID:       "rep_1",
		ContactName:    "Alex",
		ToNumber:       "+15551230001",
		State:          domain.CallStateInitiated,
		SpokenText:     "Hello Alex.",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.SaveCallSession(ctx, cs); err != nil {
		t.Fatalf("SaveCallSession failed: %v", err)
	}

	cs.State = domain.CallStateCompleted
	cs.Replays = 2
	cs.DurationSec = 31
	cs.UpdatedAt = now.Add(time.Minute)
	if err := store.SaveCallSession(ctx, cs); err != nil {
		t.Fatalf("SaveCallSession update failed: %v", err)
	}

	got, err := store.GetCallSession(ctx, "CA1")
	if err != nil {
		t.Fatalf("GetCallSession failed: %v", err)
	}
	if got == nil || got.State != domain.CallStateCompleted || got.Replays != 2 || got.DurationSec != 31 {
		t.Fatalf("unexpected call session: %+v", got)
	}
	if got.SpokenText != "Hello Alex." {
		t.Fatalf("unexpected spoken text: %q", got.SpokenText)
	}

	list, err := store.ListCallSessions(ctx, "rep_1")
	if err != nil {
		t.Fatalf("ListCallSessions failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}

	missing, err := store.GetCallSession(ctx, "CA404")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", missing, err)
	}
}

func TestSQLiteStoreCallEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	events := []domain.CallEvent{
		{ProviderCallID: "CA1", Kind: domain.CallEventStatus, From: domain.CallStateInitiated, To: domain.CallStateRinging, Accepted: true, Ts: time.Now()},
		{ProviderCallID: "CA1", Kind: domain.CallEventStatus, From: domain.CallStateRinging, To: domain.CallStateInitiated, Reason: "invalid transition", Ts: time.Now()},
		{ProviderCallID: "CA1", Kind: domain.CallEventDigits, Digit: "1", Accepted: true, Ts: time.Now()},
	}
	for i := range events {
		if err := store.AppendCallEvent(ctx, &events[i]); err != nil {
			t.Fatalf("AppendCallEvent failed: %v", err)
		}
	}

	got, err := store.ListCallEvents(ctx, "CA1")
	if err != nil {
		t.Fatalf("ListCallEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[1].Accepted || got[1].Reason != "invalid transition" {
		t.Fatalf("unexpected rejected event: %+v", got[1])
	}
	if got[2].Digit != "1" || got[2].Kind != domain.CallEventDigits {
		t.Fatalf("unexpected digit event: %+v", got[2])
	}
}
