// Package notify fans an emergency alert out to every contact by voice call
// and SMS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xiaot623/lifeline/internal/adapter/speech"
	"github.com/xiaot623/lifeline/internal/adapter/telephony"
	"github.com/xiaot623/lifeline/internal/audio"
	"github.com/xiaot623/lifeline/internal/callscript"
	"github.com/xiaot623/lifeline/internal/crisis"
	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/observability"
)

// SMSBody renders the text message sent to every contact.
func SMSBody(narrative string) string {
	return "🚨 EMERGENCY ALERT 🚨\n\n" + narrative + "\n\nPlease call them immediately or contact emergency services."
}

// Artifacts stores synthesized audio for the provider to fetch.
type Artifacts interface {
	Persist(data []byte) (audio.Handle, error)
	Release(h audio.Handle) error
}

// Scripts renders call instructions.
type Scripts interface {
	Build(s callscript.Speech) (string, error)
}

// CallRegistry receives every successfully placed call.
type CallRegistry interface {
	Register(ctx context.Context, session domain.CallSession) error
	ClearAudio(callID string)
}

// Scheduler defers artifact release.
type Scheduler interface {
	Schedule(delay time.Duration, name string, fn func()) (func() bool, error)
}

// Config holds dispatch settings.
type Config struct {
	FromNumber        string
	OrgName           string
	StatusCallbackURL string
	Pacing            time.Duration
	ProviderTimeout   time.Duration
	CleanupDelay      time.Duration
	// AudioURL maps an artifact name to the address the provider fetches.
	AudioURL func(name string) string
}

// Deps are the dispatcher's collaborators. Synthesizer, Calls, Scheduler,
// Metrics and Done may be nil.
type Deps struct {
	Telephony   telephony.Provider
	Synthesizer speech.Synthesizer
	Artifacts   Artifacts
	Scripts     Scripts
	Calls       CallRegistry
	Scheduler   Scheduler
	Metrics     *observability.Metrics
	// Done is closed on shutdown. Remaining contacts are then attempted
	// without pacing waits.
	Done <-chan struct{}
}

// Options identify one dispatch.
type Options struct {
	ReportID  string
	SessionID string
}

// Dispatcher contacts every emergency contact in order.
type Dispatcher struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config, deps Deps) *Dispatcher {
	return &Dispatcher{cfg: cfg, deps: deps, now: time.Now}
}

// Dispatch calls and texts each contact in order, waiting the pacing interval
// between contacts. A failed attempt never stops the others. The dispatch
// ignores caller cancellation once started; shutdown only cuts the pacing.
func (d *Dispatcher) Dispatch(ctx context.Context, contacts []domain.EmergencyContact, narrative string, opts Options) (*domain.NotificationReport, error) {
	if len(contacts) == 0 {
		return nil, domain.NewValidationError("contacts", "no emergency contacts configured")
	}
	if d.deps.Telephony == nil {
		return nil, &domain.ConfigurationError{Component: "telephony", Message: "provider client missing"}
	}
	if d.cfg.FromNumber == "" {
		return nil, &domain.ConfigurationError{Component: "telephony", Message: "sender phone number missing"}
	}

	ctx = context.WithoutCancel(ctx)
	start := d.now()
	agg := NewAggregator(opts.ReportID, opts.SessionID, start)

	for i, c := range contacts {
		if i > 0 {
			d.pace()
		}
		agg.Record(d.record(d.callContact(ctx, i, c, narrative, opts.ReportID)))
		agg.Record(d.record(d.textContact(ctx, i, c, narrative)))
	}

	report := agg.Report(d.now())
	d.deps.Metrics.ObserveDispatch(report.CompletedAt.Sub(start))
	log.Printf("INFO: dispatch %s notified %d of %d contacts", report.ReportID, report.ContactsNotified, len(contacts))
	return report, nil
}

func (d *Dispatcher) pace() {
	if d.cfg.Pacing <= 0 {
		return
	}
	timer := time.NewTimer(d.cfg.Pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-d.deps.Done:
	}
}

func (d *Dispatcher) record(a domain.DispatchAttempt) domain.DispatchAttempt {
	d.deps.Metrics.RecordAttempt(a)
	return a
}

func (d *Dispatcher) callContact(ctx context.Context, idx int, c domain.EmergencyContact, narrative, reportID string) domain.DispatchAttempt {
	attempt := domain.DispatchAttempt{
		ContactIndex: idx,
		Contact:      c,
		Channel:      domain.ChannelCall,
		Timestamp:    d.now(),
	}
	text := crisis.ComposeCallScript(narrative, c.Name, d.cfg.OrgName)

	if d.deps.Synthesizer == nil {
		return failed(attempt, domain.ChannelErrorSynthesis, errors.New("no speech synthesizer configured"))
	}
	data, err := d.synthesize(ctx, text)
	if err != nil {
		return failed(attempt, domain.ChannelErrorSynthesis, err)
	}

	h, err := d.deps.Artifacts.Persist(data)
	if err != nil {
		return failed(attempt, domain.ChannelErrorAudio, err)
	}
	var callID string
	defer func() { d.scheduleRelease(h, callID) }()

	spoken := callscript.Speech{Text: text}
	if d.cfg.AudioURL != nil {
		spoken.AudioURL = d.cfg.AudioURL(h.Name)
	}
	script, err := d.deps.Scripts.Build(spoken)
	if err != nil {
		return failed(attempt, domain.ChannelErrorScript, err)
	}

	callCtx, cancel := d.providerContext(ctx)
	receipt, err := d.deps.Telephony.PlaceCall(callCtx, telephony.CallRequest{
		To:             c.PhoneNumber,
		From:           d.cfg.FromNumber,
		Script:         script,
		StatusCallback: d.cfg.StatusCallbackURL,
	})
	cancel()
	if err != nil {
		return failed(attempt, domain.ChannelErrorCallPlacement, err)
	}

	callID = receipt.Sid
	attempt.Outcome = domain.OutcomeSuccess
	attempt.ProviderReferenceID = receipt.Sid
	attempt.ProviderStatus = receipt.Status

	if d.deps.Calls != nil {
		err := d.deps.Calls.Register(ctx, domain.CallSession{
			ProviderCallID: receipt.Sid,
			ReportID:       reportID,
			ContactName:    c.Name,
			ToNumber:       c.PhoneNumber,
			State:          domain.CallStateInitiated,
			SpokenText:     text,
			AudioURL:       spoken.AudioURL,
		})
		if err != nil {
			log.Printf("WARN: failed to track call %s: %v", receipt.Sid, err)
		}
	}
	return attempt
}

func (d *Dispatcher) synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := d.providerContext(ctx)
	defer cancel()
	return d.deps.Synthesizer.Synthesize(ctx, text)
}

func (d *Dispatcher) textContact(ctx context.Context, idx int, c domain.EmergencyContact, narrative string) domain.DispatchAttempt {
	attempt := domain.DispatchAttempt{
		ContactIndex: idx,
		Contact:      c,
		Channel:      domain.ChannelSMS,
		Timestamp:    d.now(),
	}

	ctx, cancel := d.providerContext(ctx)
	defer cancel()
	receipt, err := d.deps.Telephony.SendSMS(ctx, telephony.SMSRequest{
		To:   c.PhoneNumber,
		From: d.cfg.FromNumber,
		Body: SMSBody(narrative),
	})
	if err != nil {
		return failed(attempt, domain.ChannelErrorSMSSend, err)
	}

	attempt.Outcome = domain.OutcomeSuccess
	attempt.ProviderReferenceID = receipt.Sid
	attempt.ProviderStatus = receipt.Status
	return attempt
}

func (d *Dispatcher) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.ProviderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.cfg.ProviderTimeout)
}

// scheduleRelease deletes the artifact after the cleanup delay, or at once
// when no scheduler will take it.
func (d *Dispatcher) scheduleRelease(h audio.Handle, callID string) {
	d.deps.Metrics.CleanupScheduled()
	release := func() {
		if callID != "" && d.deps.Calls != nil {
			d.deps.Calls.ClearAudio(callID)
		}
		if err := d.deps.Artifacts.Release(h); err != nil {
			log.Printf("WARN: %v", err)
		}
		d.deps.Metrics.CleanupDone()
	}

	if d.deps.Scheduler == nil {
		release()
		return
	}
	if _, err := d.deps.Scheduler.Schedule(d.cfg.CleanupDelay, "audio "+h.Name, release); err != nil {
		log.Printf("WARN: releasing %s now: %v", h.Name, err)
		release()
	}
}

func failed(a domain.DispatchAttempt, kind domain.ChannelErrorKind, err error) domain.DispatchAttempt {
	cerr := &domain.ChannelError{Kind: kind, Channel: a.Channel, Err: err}
	log.Printf("WARN: contact %d %s attempt failed: %v", a.ContactIndex, a.Channel, cerr)
	a.Outcome = domain.OutcomeFailure
	a.ErrorKind = kind
	a.ErrorDetail = fmt.Sprint(err)
	return a
}
