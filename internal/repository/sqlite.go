package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/lifeline/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS crisis_analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			level TEXT NOT NULL,
			matched_keywords TEXT NOT NULL,
			requires_intervention INTEGER NOT NULL,
			computed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crisis_analyses_session ON crisis_analyses(session_id, computed_at)`,
		`CREATE TABLE IF NOT EXISTS notification_reports (
			report_id TEXT PRIMARY KEY,
			session_id TEXT,
			contacts_notified INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dispatch_attempts (
			report_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			contact_index INTEGER NOT NULL,
			contact_name TEXT NOT NULL,
			contact_phone TEXT NOT NULL,
			contact_relationship TEXT,
			contact_is_primary INTEGER NOT NULL DEFAULT 0,
			channel TEXT NOT NULL,
			outcome TEXT NOT NULL,
			provider_reference_id TEXT,
			provider_status TEXT,
			error_kind TEXT,
			error_detail TEXT,
			ts DATETIME NOT NULL,
			PRIMARY KEY (report_id, seq),
			FOREIGN KEY (report_id) REFERENCES notification_reports(report_id)
		)`,
		`CREATE TABLE IF NOT EXISTS call_sessions (
			provider_call_id TEXT PRIMARY KEY,
			report_id TEXT,
			contact_name TEXT,
			to_number TEXT,
			state TEXT NOT NULL,
			last_digit TEXT,
			spoken_text TEXT,
			audio_url TEXT,
			replays INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_sessions_report ON call_sessions(report_id)`,
		`CREATE TABLE IF NOT EXISTS call_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider_call_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			from_state TEXT,
			to_state TEXT,
			digit TEXT,
			accepted INTEGER NOT NULL,
			reason TEXT,
			report_id TEXT,
			ts DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_events_call ON call_events(provider_call_id, id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Added after the first release; SQLite has limited ALTER TABLE support.
	if err := s.ensureColumn("call_sessions", "duration_sec", "ALTER TABLE call_sessions ADD COLUMN duration_sec INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCrisisAnalysis appends an analysis to a session's history.
func (s *SQLiteStore) SaveCrisisAnalysis(ctx context.Context, rec *domain.CrisisRecord) error {
	keywords, err := json.Marshal(rec.Analysis.MatchedKeywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crisis_analyses (session_id, score, level, matched_keywords, requires_intervention, computed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Analysis.Score, rec.Analysis.Level, string(keywords), rec.Analysis.RequiresIntervention, rec.Analysis.ComputedAt)
	return err
}

// ListCrisisAnalyses returns a session's analyses, newest first.
func (s *SQLiteStore) ListCrisisAnalyses(ctx context.Context, sessionID string, limit int) ([]domain.CrisisRecord, error) {
	query := `SELECT session_id, score, level, matched_keywords, requires_intervention, computed_at FROM crisis_analyses WHERE session_id = ? ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CrisisRecord
	for rows.Next() {
		var rec domain.CrisisRecord
		var keywords string
		if err := rows.Scan(&rec.SessionID, &rec.Analysis.Score, &rec.Analysis.Level, &keywords, &rec.Analysis.RequiresIntervention, &rec.Analysis.ComputedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywords), &rec.Analysis.MatchedKeywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
		rec.Analysis.IsCrisis = rec.Analysis.RequiresIntervention
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveReport stores a report and its attempts atomically.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *domain.NotificationReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notification_reports (report_id, session_id, contacts_notified, started_at, completed_at) VALUES (?, ?, ?, ?, ?)`,
		report.ReportID, report.SessionID, report.ContactsNotified, report.StartedAt, report.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for i, a := range report.Attempts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dispatch_attempts (report_id, seq, contact_index, contact_name, contact_phone, contact_relationship, contact_is_primary,
				channel, outcome, provider_reference_id, provider_status, error_kind, error_detail, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ReportID, i, a.ContactIndex, a.Contact.Name, a.Contact.PhoneNumber, a.Contact.Relationship, a.Contact.IsPrimary,
			a.Channel, a.Outcome, a.ProviderReferenceID, a.ProviderStatus, a.ErrorKind, a.ErrorDetail, a.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert attempt %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetReport retrieves a report with its attempts in dispatch order.
func (s *SQLiteStore) GetReport(ctx context.Context, reportID string) (*domain.NotificationReport, error) {
	var report domain.NotificationReport
	var sessionID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT report_id, session_id, contacts_notified, started_at, completed_at FROM notification_reports WHERE report_id = ?`,
		reportID).Scan(&report.ReportID, &sessionID, &report.ContactsNotified, &report.StartedAt, &report.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	report.SessionID = sessionID.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_index, contact_name, contact_phone, contact_relationship, contact_is_primary,
			channel, outcome, provider_reference_id, provider_status, error_kind, error_detail, ts
		FROM dispatch_attempts WHERE report_id = ? ORDER BY seq ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report.Attempts = []domain.DispatchAttempt{}
	for rows.Next() {
		var a domain.DispatchAttempt
		var relationship, refID, status, errKind, errDetail sql.NullString
		if err := rows.Scan(&a.ContactIndex, &a.Contact.Name, &a.Contact.PhoneNumber, &relationship, &a.Contact.IsPrimary,
			&a.Channel, &a.Outcome, &refID, &status, &errKind, &errDetail, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Contact.Relationship = relationship.String
		a.ProviderReferenceID = refID.String
		a.ProviderStatus = status.String
		a.ErrorKind = domain.ChannelErrorKind(errKind.String)
		a.ErrorDetail = errDetail.String
		report.Attempts = append(report.Attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveCallSession inserts or replaces a call session.
func (s *SQLiteStore) SaveCallSession(ctx context.Context, cs *domain.CallSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_sessions (provider_call_id, report_id, contact_name, to_number, state, last_digit, spoken_text, audio_url, replays, duration_sec, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_call_id) DO UPDATE SET
			state = excluded.state,
			last_digit = excluded.last_digit,
			audio_url = excluded.audio_url,
			replays = excluded.replays,
			duration_sec = excluded.duration_sec,
			updated_at = excluded.updated_at`,
		cs.ProviderCallID, cs.ReportID, cs.ContactName, cs.ToNumber, cs.State, cs.LastDigit, cs.SpokenText, cs.AudioURL,
		cs.Replays, cs.DurationSec, cs.CreatedAt, cs.UpdatedAt)
	return err
}

const callSessionColumns = `provider_call_id, report_id, contact_name, to_number, state, last_digit, spoken_text, audio_url, replays, duration_sec, created_at, updated_at`

func scanCallSession(scan func(dest ...interface{}) error) (*domain.CallSession, error) {
	var cs domain.CallSession
	var reportID, contactName, toNumber, lastDigit, spokenText, audioURL sql.NullString
	if err := scan(&cs.ProviderCallID, &reportID, &contactName, &toNumber, &cs.State, &lastDigit, &spokenText, &audioURL,
		&cs.Replays, &cs.DurationSec, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
		return nil, err
	}
	cs.ReportID = reportID.String
	cs.ContactName = contactName.String
	cs.ToNumber = toNumber.String
	cs.LastDigit = lastDigit.String
	cs.SpokenText = spokenText.String
	cs.AudioURL = audioURL.String
	return &cs, nil
}

// GetCallSession retrieves a call session by provider call id.
func (s *SQLiteStore) GetCallSession(ctx context.Context, callID string) (*domain.CallSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+callSessionColumns+` FROM call_sessions WHERE provider_call_id = ?`, callID)
	cs, err := scanCallSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cs, err
}

// ListCallSessions returns the calls placed for a report.
func (s *SQLiteStore) ListCallSessions(ctx context.Context, reportID string) ([]domain.CallSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+callSessionColumns+` FROM call_sessions WHERE report_id = ? ORDER BY created_at ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.CallSession
	for rows.Next() {
		cs, err := scanCallSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *cs)
	}
	return sessions, rows.Err()
}

// AppendCallEvent records a provider callback.
func (s *SQLiteStore) AppendCallEvent(ctx context.Context, e *domain.CallEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_events (provider_call_id, kind, from_state, to_state, digit, accepted, reason, report_id, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ProviderCallID, e.Kind, e.From, e.To, e.Digit, e.Accepted, e.Reason, e.ReportID, e.Ts)
	return err
}

// ListCallEvents returns a call's callbacks in arrival order.
func (s *SQLiteStore) ListCallEvents(ctx context.Context, callID string) ([]domain.CallEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider_call_id, kind, from_state, to_state, digit, accepted, reason, report_id, ts FROM call_events WHERE provider_call_id = ? ORDER BY id ASC`,
		callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.CallEvent
	for rows.Next() {
		var e domain.CallEvent
		var from, to, digit, reason, reportID sql.NullString
		if err := rows.Scan(&e.ProviderCallID, &e.Kind, &from, &to, &digit, &e.Accepted, &reason, &reportID, &e.Ts); err != nil {
			return nil, err
		}
		e.From = domain.CallState(from.String)
		e.To = domain.CallState(to.String)
		e.Digit = digit.String
		e.Reason = reason.String
		e.ReportID = reportID.String
		events = append(events, e)
	}
	return events, rows.Err()
}
