package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// Notifier delivers a single event to a single user. Delivery mechanics
// (email, push, webhook) are the implementation's concern.
type Notifier interface {
	// Notify sends the event. Implementations should respect ctx
	// cancellation and return promptly.
	Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	return f(ctx, userID, event, payload)
}

// Shuffler permutes n elements in place through swap. Production code uses
// a uniform Fisher-Yates shuffle; tests inject a seeded one.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like scores submitted, sessions
	// completed, notification failures, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like final scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
