package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// newTestMetrics registers against a private registry so tests do not
// collide on the default one.
func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestNewPrometheusMetrics(t *testing.T) {
	pm, _ := newTestMetrics(t)

	assert.NotNil(t, pm.scoresSubmitted, "scoresSubmitted should be initialized")
	assert.NotNil(t, pm.sessionsCompleted, "sessionsCompleted should be initialized")
	assert.NotNil(t, pm.finalScores, "finalScores should be initialized")
	assert.NotNil(t, pm.winnersSelected, "winnersSelected should be initialized")
	assert.NotNil(t, pm.notifications, "notifications should be initialized")
	assert.NotNil(t, pm.executionLatency, "executionLatency should be initialized")

	var _ ports.MetricsCollector = pm
}

func TestPrometheusMetrics_DomainCounters(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordCounter(MetricScoresSubmitted, 1, map[string]string{"status": "submitted"})
	pm.RecordCounter(MetricScoresSubmitted, 1, map[string]string{"status": "submitted"})
	pm.RecordCounter(MetricScoresSubmitted, 1, map[string]string{"status": "draft"})
	pm.RecordCounter(MetricSessionsCompleted, 1, map[string]string{
		"decision": "approved", "consensus": "true", "method": "average",
	})
	pm.RecordCounter(MetricWinnersSelected, 3, map[string]string{"kind": "contest", "method": "hybrid"})
	pm.RecordCounter(MetricNotifications, 1, map[string]string{"event": "contest_winner", "status": "error"})

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.scoresSubmitted.WithLabelValues("submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.scoresSubmitted.WithLabelValues("draft")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.sessionsCompleted.WithLabelValues("approved", "true", "average")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.winnersSelected.WithLabelValues("contest", "hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.notifications.WithLabelValues("contest_winner", "error")))
}

func TestPrometheusMetrics_MissingLabelsFallBack(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordCounter(MetricSessionsCompleted, 1, nil)
	pm.RecordCounter(MetricNotifications, 1, map[string]string{"event": ""})

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.sessionsCompleted.WithLabelValues("unknown", "unknown", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.notifications.WithLabelValues("unknown", "success")))
}

func TestPrometheusMetrics_GenericMetrics(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordCounter("outbox_replays_total", 2, map[string]string{"status": "error"})
	pm.RecordGauge("open_sessions", 4, nil)
	pm.RecordLatency("SubmitJudgeScore", 25*time.Millisecond, map[string]string{"status": "success"})
	pm.RecordHistogram(MetricFinalScore, 7.0, map[string]string{"method": "average"})
	pm.RecordHistogram(MetricNotificationLatency, 0.2, map[string]string{"status": "success"})

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("outbox_replays_total", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(pm.systemGauges.WithLabelValues("open_sessions")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]uint64, len(families))
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if h := m.GetHistogram(); h != nil {
				names[f.GetName()] += h.GetSampleCount()
			}
		}
	}
	assert.Equal(t, uint64(1), names[MetricFinalScore])
	assert.Equal(t, uint64(2), names["judging_engine_operation_duration_seconds"])
}

func TestNewPrometheusMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)
	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}
