package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// Config controls delivery resilience. Zero values fall back to
// DefaultConfig.
type Config struct {
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
	MaxRetries      int           `yaml:"max_retries" validate:"min=0,max=10"`
	BaseDelay       time.Duration `yaml:"base_delay" validate:"min=0"`
	MaxDelay        time.Duration `yaml:"max_delay" validate:"min=0"`
	RatePerSecond   float64       `yaml:"rate_per_second" validate:"min=0"`
	Burst           int           `yaml:"burst" validate:"min=0"`
	BreakerFailures int           `yaml:"breaker_failures" validate:"min=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" validate:"min=0"`
	Concurrency     int           `yaml:"concurrency" validate:"min=0,max=256"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		RatePerSecond:   50,
		Burst:           100,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		Concurrency:     8,
	}
}

// Build wraps base with the standard middleware stack described by cfg.
// collector may be nil.
func Build(base ports.Notifier, cfg Config, collector ports.MetricsCollector, serviceName string) ports.Notifier {
	mws := []Middleware{TracingMiddleware(serviceName)}
	if collector != nil {
		mws = append(mws, MetricsMiddleware(collector))
	}
	if cfg.MaxRetries > 0 {
		mws = append(mws, RetryMiddleware(cfg.MaxRetries, cfg.BaseDelay, cfg.MaxDelay))
	}
	if cfg.BreakerFailures > 0 {
		mws = append(mws, CircuitBreakerMiddleware(cfg.BreakerFailures, cfg.BreakerCooldown))
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		mws = append(mws, RateLimitMiddleware(rate.Limit(cfg.RatePerSecond), burst))
	}
	if cfg.Timeout > 0 {
		mws = append(mws, TimeoutMiddleware(cfg.Timeout))
	}
	return Chain(base, mws...)
}

// Dispatcher delivers batches of notifications and absorbs every failure.
type Dispatcher struct {
	notifier    ports.Notifier
	outbox      ports.OutboxStore
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// NewDispatcher creates a Dispatcher. outbox may be nil, in which case
// failures are only logged.
func NewDispatcher(notifier ports.Notifier, outbox ports.OutboxStore, logger *slog.Logger, concurrency int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConfig().Concurrency
	}
	return &Dispatcher{
		notifier:    notifier,
		outbox:      outbox,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Dispatch delivers every notification with bounded concurrency and returns
// the failures, each a *domain.NotificationDeliveryError. Callers are
// expected to ignore the result for control flow; it exists for tests and
// reporting.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []domain.Notification) []error {
	if d == nil || d.notifier == nil || len(notifications) == 0 {
		return nil
	}

	failures := make([]error, len(notifications))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, n := range notifications {
		g.Go(func() error {
			if err := d.notifier.Notify(ctx, n.UserID, n.Event, n.Payload); err != nil {
				failures[i] = &domain.NotificationDeliveryError{UserID: n.UserID, Event: n.Event, Err: err}
				d.recordFailure(ctx, n, err)
			}
			// Never abort the group: one bad address must not stop the rest.
			return nil
		})
	}
	_ = g.Wait()

	out := failures[:0]
	for _, err := range failures {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func (d *Dispatcher) recordFailure(ctx context.Context, n domain.Notification, err error) {
	d.logger.WarnContext(ctx, "notification delivery failed",
		slog.String("user_id", n.UserID),
		slog.String("event", string(n.Event)),
		slog.String("error", err.Error()),
	)
	if d.outbox == nil {
		return
	}

	// The request context may already be cancelled; the outbox write must
	// still land.
	octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	rec := domain.UndeliveredNotification{
		ID:        uuid.NewString(),
		UserID:    n.UserID,
		Event:     n.Event,
		Payload:   n.Payload,
		Error:     err.Error(),
		CreatedAt: d.now().UTC(),
	}
	if oerr := d.outbox.RecordUndeliveredNotification(octx, rec); oerr != nil {
		d.logger.ErrorContext(ctx, "recording undelivered notification failed",
			slog.String("user_id", n.UserID),
			slog.String("event", string(n.Event)),
			slog.String("error", oerr.Error()),
		)
	}
}
