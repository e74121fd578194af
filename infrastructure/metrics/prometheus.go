// Package metrics provides the Prometheus implementation of
// ports.MetricsCollector for the judging engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// Metric names recognized by PrometheusMetrics. Anything else is routed to
// the generic operation counter or gauge.
const (
	MetricScoresSubmitted     = "judge_scores_submitted_total"
	MetricSessionsCompleted   = "judging_sessions_completed_total"
	MetricFinalScore          = "judging_final_score"
	MetricWinnersSelected     = "winners_selected_total"
	MetricNotifications       = "notifications_total"
	MetricNotificationLatency = "notification_latency_seconds"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It provides monitoring of judging throughput, session outcomes, winner
// selection and notification delivery.
type PrometheusMetrics struct {
	scoresSubmitted   *prometheus.CounterVec
	sessionsCompleted *prometheus.CounterVec
	finalScores       *prometheus.HistogramVec
	winnersSelected   *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	executionLatency  *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	systemGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all metrics with reg. A nil reg registers with the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		scoresSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricScoresSubmitted,
				Help: "Judge scores upserted, by score status.",
			},
			[]string{"status"},
		),
		sessionsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSessionsCompleted,
				Help: "Judging sessions that reached a final decision.",
			},
			[]string{"decision", "consensus", "method"},
		),
		finalScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFinalScore,
				Help:    "Distribution of aggregated session final scores.",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
			[]string{"method"},
		),
		winnersSelected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricWinnersSelected,
				Help: "Winners selected, by target kind and selection method.",
			},
			[]string{"kind", "method"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNotifications,
				Help: "Notification delivery attempts, by event and outcome.",
			},
			[]string{"event", "status"},
		),

		// General execution metrics.
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "judging_engine_operation_duration_seconds",
				Help:    "Execution time of judging engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judging_engine_operations_total",
				Help: "Total number of operations performed by the judging engine.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "judging_engine_state",
				Help: "Current state values reported by the judging engine.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, statusLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricScoresSubmitted:
		pm.scoresSubmitted.WithLabelValues(labelOr(labels, "status", "submitted")).Add(value)
	case MetricSessionsCompleted:
		pm.sessionsCompleted.WithLabelValues(
			labelOr(labels, "decision", "unknown"),
			labelOr(labels, "consensus", "unknown"),
			labelOr(labels, "method", "unknown"),
		).Add(value)
	case MetricWinnersSelected:
		pm.winnersSelected.WithLabelValues(
			labelOr(labels, "kind", "unknown"),
			labelOr(labels, "method", "unknown"),
		).Add(value)
	case MetricNotifications:
		pm.notifications.WithLabelValues(
			labelOr(labels, "event", "unknown"),
			statusLabel(labels),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, statusLabel(labels)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricFinalScore:
		pm.finalScores.WithLabelValues(labelOr(labels, "method", "unknown")).Observe(value)
	default:
		// Latency-style histograms share the operation histogram.
		pm.executionLatency.WithLabelValues(metric, statusLabel(labels)).Observe(value)
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

func statusLabel(labels map[string]string) string { return labelOr(labels, "status", "success") }

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
