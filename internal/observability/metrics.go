// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xiaot623/lifeline/internal/domain"
)

const namespace = "lifeline"

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	AnalysesTotal           *prometheus.CounterVec
	DispatchAttemptsTotal   *prometheus.CounterVec
	DispatchDurationSeconds prometheus.Histogram
	CallTransitionsTotal    *prometheus.CounterVec
	CallbacksRejectedTotal  *prometheus.CounterVec
	DigitsTotal             *prometheus.CounterVec
	PendingCleanups         prometheus.Gauge
	WatchClients            prometheus.Gauge
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crisis",
			Name:      "analyses_total",
			Help:      "Conversation analyses by crisis level",
		}, []string{"level"}),
		DispatchAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Notification attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		DispatchDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Wall time of a full notification dispatch",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		CallTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "transitions_total",
			Help:      "Accepted call state transitions",
		}, []string{"from", "to"}),
		CallbacksRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "callbacks_rejected_total",
			Help:      "Provider callbacks that changed nothing",
		}, []string{"reason"}),
		DigitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "digits_total",
			Help:      "Key presses received during alert calls",
		}, []string{"action"}),
		PendingCleanups: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audio",
			Name:      "pending_cleanups",
			Help:      "Audio artifacts waiting for release",
		}),
		WatchClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "clients",
			Help:      "Connected call watch websocket clients",
		}),
	}
}

func (m *Metrics) RecordAnalysis(level domain.CrisisLevel) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(string(level)).Inc()
}

func (m *Metrics) RecordAttempt(a domain.DispatchAttempt) {
	if m == nil {
		return
	}
	m.DispatchAttemptsTotal.WithLabelValues(string(a.Channel), string(a.Outcome)).Inc()
}

func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchDurationSeconds.Observe(d.Seconds())
}

func (m *Metrics) RecordTransition(from, to domain.CallState) {
	if m == nil {
		return
	}
	m.CallTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

// Rejection reasons.
const (
	ReasonInvalidTransition = "invalid_transition"
	ReasonUnknownStatus     = "unknown_status"
	ReasonUnknownCall       = "unknown_call"
	ReasonExpired           = "expired"
	ReasonBadSignature      = "bad_signature"
)

func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.CallbacksRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordDigit(replay bool) {
	if m == nil {
		return
	}
	action := "close"
	if replay {
		action = "replay"
	}
	m.DigitsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) CleanupScheduled() {
	if m == nil {
		return
	}
	m.PendingCleanups.Inc()
}

func (m *Metrics) CleanupDone() {
	if m == nil {
		return
	}
	m.PendingCleanups.Dec()
}

func (m *Metrics) WatchConnected() {
	if m == nil {
		return
	}
	m.WatchClients.Inc()
}

func (m *Metrics) WatchDisconnected() {
	if m == nil {
		return
	}
	m.WatchClients.Dec()
}
