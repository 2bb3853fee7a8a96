package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/lifeline/internal/domain"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordAttempt(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordAttempt(domain.DispatchAttempt{Channel: domain.ChannelCall, Outcome: domain.OutcomeFailure})
	m.RecordAttempt(domain.DispatchAttempt{Channel: domain.ChannelSMS, Outcome: domain.OutcomeSuccess})
	m.RecordAttempt(domain.DispatchAttempt{Channel: domain.ChannelSMS, Outcome: domain.OutcomeSuccess})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchAttemptsTotal.WithLabelValues("call", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DispatchAttemptsTotal.WithLabelValues("sms", "success")))
}

func TestTransitionsAndRejections(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordTransition(domain.CallStateInitiated, domain.CallStateRinging)
	m.RecordRejected(ReasonInvalidTransition)
	m.RecordDigit(true)
	m.RecordDigit(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallTransitionsTotal.WithLabelValues("initiated", "ringing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbacksRejectedTotal.WithLabelValues(ReasonInvalidTransition)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DigitsTotal.WithLabelValues("replay")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DigitsTotal.WithLabelValues("close")))
}

func TestGauges(t *testing.T) {
	m := newTestMetrics(t)

	m.CleanupScheduled()
	m.CleanupScheduled()
	m.CleanupDone()
	m.WatchConnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PendingCleanups))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchClients))
}

func TestAnalysisAndDuration(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordAnalysis(domain.CrisisLevelCritical)
	m.ObserveDispatch(3 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("critical")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DispatchDurationSeconds))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAnalysis(domain.CrisisLevelNone)
		m.RecordAttempt(domain.DispatchAttempt{})
		m.RecordRejected(ReasonUnknownCall)
		m.CleanupScheduled()
		m.WatchDisconnected()
	})
}
