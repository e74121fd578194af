package notify

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-gavel-contests/infrastructure/metrics"
	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// metricsNotifier counts deliveries and records their latency.
type metricsNotifier struct {
	next      ports.Notifier
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that collects delivery metrics.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next ports.Notifier) ports.Notifier {
		return &metricsNotifier{next: next, collector: collector}
	}
}

// Notify executes the delivery while recording outcome and latency.
func (m *metricsNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	start := time.Now()
	err := m.next.Notify(ctx, userID, event, payload)

	if m.collector == nil {
		return err
	}

	labels := map[string]string{
		"event":  string(event),
		"status": "success",
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrCircuitOpen):
			labels["status"] = "circuit_open"
		case errors.Is(err, context.DeadlineExceeded):
			labels["status"] = "timeout"
		default:
			labels["status"] = "error"
		}
	}

	m.collector.RecordHistogram(metrics.MetricNotificationLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(metrics.MetricNotifications, 1, labels)
	return err
}
