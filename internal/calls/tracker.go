package calls

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/xiaot623/lifeline/internal/callscript"
	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/observability"
)

const (
	DefaultEarlyEventTTL    = 5 * time.Minute
	DefaultMaxEarlyEvents   = 1024
	DefaultSessionRetention = time.Hour
)

// Store persists sessions and their callback history.
type Store interface {
	SaveCallSession(ctx context.Context, s *domain.CallSession) error
	AppendCallEvent(ctx context.Context, e *domain.CallEvent) error
}

// Observer is told about every accepted callback.
type Observer interface {
	ObserveCall(session domain.CallSession, event domain.CallEvent)
}

// Scripts renders the TwiML answered to key presses.
type Scripts interface {
	Build(s callscript.Speech) (string, error)
	Closing() (string, error)
}

type earlyEvent struct {
	status   string
	duration int
	at       time.Time
}

// tracked is one live call. version counts mutations under Tracker.mu;
// saved is the last version written to the store, so a slow save of an
// older snapshot never overwrites a newer one.
type tracked struct {
	session domain.CallSession
	version uint64

	saveMu sync.Mutex
	saved  uint64
}

// Tracker is the call lifecycle state machine. It is safe for concurrent
// callbacks.
type Tracker struct {
	mu         sync.Mutex
	sessions   map[string]*tracked
	early      map[string][]earlyEvent
	earlyCount int

	scripts   Scripts
	store     Store
	metrics   *observability.Metrics
	observers []Observer

	earlyTTL  time.Duration
	maxEarly  int
	retention time.Duration
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithEarlyEventTTL bounds how long callbacks for unregistered calls are kept.
func WithEarlyEventTTL(d time.Duration) Option {
	return func(t *Tracker) { t.earlyTTL = d }
}

// WithMaxEarlyEvents bounds the number of buffered early callbacks.
func WithMaxEarlyEvents(n int) Option {
	return func(t *Tracker) { t.maxEarly = n }
}

// WithSessionRetention sets how long finished sessions stay in memory.
func WithSessionRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker. store and metrics may be nil.
func NewTracker(scripts Scripts, store Store, metrics *observability.Metrics, opts ...Option) *Tracker {
	t := &Tracker{
		sessions:  make(map[string]*tracked),
		early:     make(map[string][]earlyEvent),
		scripts:   scripts,
		store:     store,
		metrics:   metrics,
		earlyTTL:  DefaultEarlyEventTTL,
		maxEarly:  DefaultMaxEarlyEvents,
		retention: DefaultSessionRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddObserver subscribes o to applied callbacks. Not safe once callbacks flow.
func (t *Tracker) AddObserver(o Observer) {
	t.observers = append(t.observers, o)
}

// Register starts tracking a placed call and replays any status callbacks
// that arrived before it.
func (t *Tracker) Register(ctx context.Context, session domain.CallSession) error {
	if session.ProviderCallID == "" {
		return domain.NewValidationError("provider_call_id", "is required")
	}

	now := t.now()
	if session.State == "" {
		session.State = domain.CallStateInitiated
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	t.mu.Lock()
	if _, exists := t.sessions[session.ProviderCallID]; exists {
		t.mu.Unlock()
		return fmt.Errorf("call %s already registered", session.ProviderCallID)
	}
	entry := &tracked{session: session, version: 1}
	s := &entry.session
	t.sessions[s.ProviderCallID] = entry

	pending := t.early[s.ProviderCallID]
	delete(t.early, s.ProviderCallID)
	t.earlyCount -= len(pending)

	events := make([]domain.CallEvent, 0, len(pending))
	for _, e := range pending {
		ev := t.applyStatusLocked(s, e.status, e.duration, now)
		if ev.Accepted {
			entry.version++
		}
		events = append(events, ev)
	}
	snapshot, version := *s, entry.version
	t.mu.Unlock()

	if len(pending) > 0 {
		log.Printf("INFO: replayed %d early callbacks for call %s", len(pending), snapshot.ProviderCallID)
	}

	t.persistSession(ctx, entry, snapshot, version)
	for i := range events {
		t.publish(ctx, snapshot, events[i])
	}
	return nil
}

// HandleStatus applies a provider status callback. Rejected callbacks are
// logged and counted, never returned as errors.
func (t *Tracker) HandleStatus(ctx context.Context, callID, status string, durationSec int) domain.CallEvent {
	now := t.now()

	t.mu.Lock()
	entry, ok := t.sessions[callID]
	if !ok {
		ev, buffered := t.bufferLocked(callID, status, durationSec, now)
		t.mu.Unlock()
		if !buffered {
			t.appendEvent(ctx, ev)
		}
		return ev
	}
	ev := t.applyStatusLocked(&entry.session, status, durationSec, now)
	if ev.Accepted {
		entry.version++
	}
	snapshot, version := entry.session, entry.version
	t.mu.Unlock()

	if ev.Accepted {
		t.persistSession(ctx, entry, snapshot, version)
	}
	t.publish(ctx, snapshot, ev)
	return ev
}

// bufferLocked holds a callback for a call not registered yet. It reports
// false when the buffer is full and the callback was dropped.
func (t *Tracker) bufferLocked(callID, status string, durationSec int, now time.Time) (domain.CallEvent, bool) {
	ev := domain.CallEvent{ProviderCallID: callID, Kind: domain.CallEventStatus, Ts: now}
	if to, ok := MapProviderStatus(status); ok {
		ev.To = to
	}
	if t.earlyCount >= t.maxEarly {
		log.Printf("WARN: early callback buffer full, dropping %s for call %s", status, callID)
		t.metrics.RecordRejected(observability.ReasonUnknownCall)
		ev.Reason = fmt.Sprintf("unknown call, buffer full, dropped %q", status)
		return ev, false
	}
	t.early[callID] = append(t.early[callID], earlyEvent{status: status, duration: durationSec, at: now})
	t.earlyCount++
	ev.Reason = "buffered until call is registered"
	return ev, true
}

func (t *Tracker) applyStatusLocked(s *domain.CallSession, status string, durationSec int, now time.Time) domain.CallEvent {
	ev := domain.CallEvent{
		ProviderCallID: s.ProviderCallID,
		Kind:           domain.CallEventStatus,
		From:           s.State,
		ReportID:       s.ReportID,
		Ts:             now,
	}

	to, ok := MapProviderStatus(status)
	if !ok {
		log.Printf("WARN: unknown status %q for call %s", status, s.ProviderCallID)
		t.metrics.RecordRejected(observability.ReasonUnknownStatus)
		ev.Reason = fmt.Sprintf("unknown status %q", status)
		return ev
	}
	ev.To = to

	if to == s.State {
		ev.Reason = "duplicate"
		return ev
	}
	if !CanTransition(s.State, to) {
		log.Printf("WARN: rejected transition %s -> %s for call %s", s.State, to, s.ProviderCallID)
		t.metrics.RecordRejected(observability.ReasonInvalidTransition)
		ev.Reason = fmt.Sprintf("invalid transition %s -> %s", s.State, to)
		return ev
	}

	s.State = to
	if durationSec > 0 {
		s.DurationSec = durationSec
	}
	s.UpdatedAt = now
	ev.Accepted = true
	t.metrics.RecordTransition(ev.From, to)
	return ev
}

// HandleDigits answers a key press with the next TwiML document: the full
// alert again for the replay key, the closing message otherwise.
func (t *Tracker) HandleDigits(ctx context.Context, callID, digit string) (string, error) {
	now := t.now()

	t.mu.Lock()
	entry, ok := t.sessions[callID]
	if !ok {
		t.mu.Unlock()
		log.Printf("WARN: digits for unknown call %s", callID)
		t.metrics.RecordRejected(observability.ReasonUnknownCall)
		t.appendEvent(ctx, domain.CallEvent{
			ProviderCallID: callID,
			Kind:           domain.CallEventDigits,
			Digit:          digit,
			Reason:         "unknown call",
			Ts:             now,
		})
		return t.scripts.Closing()
	}

	s := &entry.session
	replay := digit == callscript.ReplayDigit
	s.LastDigit = digit
	if replay {
		s.Replays++
	}
	s.UpdatedAt = now
	entry.version++
	snapshot, version := *s, entry.version
	t.mu.Unlock()

	ev := domain.CallEvent{
		ProviderCallID: callID,
		Kind:           domain.CallEventDigits,
		From:           snapshot.State,
		To:             snapshot.State,
		Digit:          digit,
		Accepted:       true,
		ReportID:       snapshot.ReportID,
		Ts:             now,
	}
	t.metrics.RecordDigit(replay)
	t.persistSession(ctx, entry, snapshot, version)
	t.publish(ctx, snapshot, ev)

	if replay {
		return t.scripts.Build(callscript.Speech{Text: snapshot.SpokenText, AudioURL: snapshot.AudioURL})
	}
	return t.scripts.Closing()
}

// ClearAudio drops the audio reference of a call once its artifact is gone,
// so replays fall back to spoken text.
func (t *Tracker) ClearAudio(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.sessions[callID]; ok {
		entry.session.AudioURL = ""
	}
}

// Session returns a copy of a tracked session.
func (t *Tracker) Session(callID string) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.sessions[callID]
	if !ok {
		return domain.CallSession{}, false
	}
	return entry.session, true
}

// EarlyEvents returns the number of buffered callbacks.
func (t *Tracker) EarlyEvents() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.earlyCount
}

// RunSweeper expires stale early callbacks and evicts finished sessions until
// ctx is done.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

func (t *Tracker) sweep() {
	now := t.now()
	var expired []domain.CallEvent

	t.mu.Lock()
	for id, events := range t.early {
		kept := events[:0]
		for _, e := range events {
			if now.Sub(e.at) < t.earlyTTL {
				kept = append(kept, e)
				continue
			}
			log.Printf("WARN: expired %s callback for unregistered call %s", e.status, id)
			t.metrics.RecordRejected(observability.ReasonExpired)
			t.earlyCount--
			ev := domain.CallEvent{
				ProviderCallID: id,
				Kind:           domain.CallEventStatus,
				Reason:         fmt.Sprintf("expired before registration, dropped %q", e.status),
				Ts:             now,
			}
			if to, ok := MapProviderStatus(e.status); ok {
				ev.To = to
			}
			expired = append(expired, ev)
		}
		if len(kept) == 0 {
			delete(t.early, id)
		} else {
			t.early[id] = kept
		}
	}

	for id, entry := range t.sessions {
		s := &entry.session
		if s.State.IsTerminal() && now.Sub(s.UpdatedAt) >= t.retention {
			delete(t.sessions, id)
		}
	}
	t.mu.Unlock()

	for i := range expired {
		t.appendEvent(context.Background(), expired[i])
	}
}

// persistSession writes snapshot unless a newer version of the same call
// has already been saved.
func (t *Tracker) persistSession(ctx context.Context, entry *tracked, snapshot domain.CallSession, version uint64) {
	if t.store == nil {
		return
	}
	entry.saveMu.Lock()
	defer entry.saveMu.Unlock()
	if version <= entry.saved {
		return
	}
	if err := t.store.SaveCallSession(ctx, &snapshot); err != nil {
		log.Printf("WARN: failed to save call session %s: %v", snapshot.ProviderCallID, err)
		return
	}
	entry.saved = version
}

func (t *Tracker) appendEvent(ctx context.Context, ev domain.CallEvent) {
	if t.store == nil {
		return
	}
	if err := t.store.AppendCallEvent(ctx, &ev); err != nil {
		log.Printf("WARN: failed to record call event %s: %v", ev.ProviderCallID, err)
	}
}

func (t *Tracker) publish(ctx context.Context, s domain.CallSession, ev domain.CallEvent) {
	t.appendEvent(ctx, ev)
	if !ev.Accepted {
		return
	}
	for _, o := range t.observers {
		o.ObserveCall(s, ev)
	}
}
