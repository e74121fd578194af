package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// mockMetricsCollector implements MetricsCollector.
type mockMetricsCollector struct {
	latencies  []time.Duration
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(_ string, d time.Duration, _ map[string]string) {
	m.latencies = append(m.latencies, d)
}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, _ map[string]string) {
	m.counters[metric] += value
}

func (m *mockMetricsCollector) RecordGauge(metric string, value float64, _ map[string]string) {
	m.gauges[metric] = value
}

func (m *mockMetricsCollector) RecordHistogram(metric string, value float64, _ map[string]string) {
	m.histograms[metric] = append(m.histograms[metric], value)
}

// reverseShuffler implements Shuffler by reversing the slice.
type reverseShuffler struct{}

func (reverseShuffler) Shuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func TestInterfaces_Implementation(t *testing.T) {
	var _ MetricsCollector = newMockMetricsCollector()
	var _ Shuffler = reverseShuffler{}
	var _ Notifier = NotifierFunc(nil)
}

func TestNotifierFunc(t *testing.T) {
	ctx := context.Background()
	var gotUser string
	var gotEvent domain.EventType
	var gotPayload map[string]any

	n := NotifierFunc(func(_ context.Context, userID string, event domain.EventType, payload map[string]any) error {
		gotUser, gotEvent, gotPayload = userID, event, payload
		return nil
	})

	require.NoError(t, n.Notify(ctx, "u1", domain.EventContestWinner, map[string]any{"rank": 1}))
	assert.Equal(t, "u1", gotUser)
	assert.Equal(t, domain.EventContestWinner, gotEvent)
	assert.Equal(t, 1, gotPayload["rank"])

	failing := NotifierFunc(func(context.Context, string, domain.EventType, map[string]any) error {
		return ErrServiceUnavailable
	})
	assert.True(t, errors.Is(failing.Notify(ctx, "u1", domain.EventContestWinner, nil), ErrServiceUnavailable))
}

func TestShuffler_Contract(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	reverseShuffler{}.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	assert.Equal(t, []string{"d", "c", "b", "a"}, items)
}

func TestMetricsCollector_Recording(t *testing.T) {
	metrics := newMockMetricsCollector()
	labels := map[string]string{"method": "average"}

	metrics.RecordLatency("SubmitJudgeScore", 100*time.Millisecond, labels)
	assert.Len(t, metrics.latencies, 1, "RecordLatency() should record one duration")
	assert.Equal(t, 100*time.Millisecond, metrics.latencies[0])

	metrics.RecordCounter("judging_sessions_completed_total", 1, labels)
	metrics.RecordCounter("judging_sessions_completed_total", 2, labels)
	assert.Equal(t, float64(3), metrics.counters["judging_sessions_completed_total"])

	metrics.RecordGauge("open_sessions", 10, labels)
	metrics.RecordGauge("open_sessions", 5, labels)
	assert.Equal(t, float64(5), metrics.gauges["open_sessions"])

	metrics.RecordHistogram("judging_final_score", 7.0, labels)
	metrics.RecordHistogram("judging_final_score", 8.5, labels)
	assert.Len(t, metrics.histograms["judging_final_score"], 2)
}
