// Package application implements the contest judging and winner selection
// engine on top of the ports it is given: a transactional store, a notifier,
// a metrics collector and a shuffler.
//
// Engine is the single entry point. Every exported operation runs in its
// own trace span, records its latency, and returns typed errors from
// internal/domain.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-gavel-contests/infrastructure/notify"
	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// ServiceName identifies the engine in traces and notification spans.
const ServiceName = "judged"

// Engine orchestrates judging sessions, discussion, judge assignment and
// winner selection.
//
// Concurrency: safe for concurrent use. Score submissions for the same
// submission are serialized; everything else relies on store transactions.
type Engine struct {
	store      ports.Store
	cfg        EngineConfig
	notifier   ports.Notifier
	dispatcher *notify.Dispatcher
	metrics    ports.MetricsCollector
	logger     *slog.Logger
	tracer     trace.Tracer
	shuffler   ports.Shuffler
	now        func() time.Time
	newID      func() string

	locks      *keyedMutex
	statsGroup singleflight.Group
	// inflight counts notification batches still being dispatched.
	inflight sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the delivery channel. The engine wraps it with the
// middleware stack described by EngineConfig.Notifications.
func WithNotifier(n ports.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithDispatcher replaces the dispatcher entirely, bypassing the middleware
// stack built from the notifier.
func WithDispatcher(d *notify.Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithShuffler sets the source of randomness for winner draws.
func WithShuffler(s ports.Shuffler) Option {
	return func(e *Engine) { e.shuffler = s }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the generator for new entity IDs.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine validates cfg and assembles an Engine over store.
//
// Example:
//
//	engine, err := application.NewEngine(store, application.DefaultEngineConfig(),
//	    application.WithNotifier(notify.NewWebhookNotifier(url, nil)),
//	    application.WithMetrics(metrics.NewPrometheusMetrics(reg)),
//	    application.WithLogger(logger),
//	)
func NewEngine(store ports.Store, cfg EngineConfig, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", domain.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store: store,
		cfg:   cfg,
		locks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(ServiceName + "/application")
	}
	if e.shuffler == nil {
		e.shuffler = randShuffler{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.dispatcher == nil {
		base := e.notifier
		if base == nil {
			base = notify.NewLogNotifier(e.logger)
		}
		chained := notify.Build(base, cfg.Notifications, e.metrics, ServiceName)
		e.dispatcher = notify.NewDispatcher(chained, store, e.logger, cfg.Notifications.Concurrency)
	}
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() EngineConfig { return e.cfg }

// observe starts a span for op and returns a function that ends it,
// recording the error and the operation latency.
//
// Usage:
//
//	ctx, done := e.observe(ctx, "SubmitJudgeScore", attribute.String("session_id", id))
//	defer func() { done(err) }()
func (e *Engine) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = errorStatus(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		e.metrics.RecordLatency(op, time.Since(start), map[string]string{"status": status})
	}
}

// errorStatus maps an error onto a low-cardinality metric label.
func errorStatus(err error) string {
	switch {
	case domain.IsValidation(err):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrency):
		return "conflict"
	case errors.Is(err, domain.ErrSessionCompleted), errors.Is(err, domain.ErrDiscussionDisabled):
		return "rejected"
	case errors.Is(err, domain.ErrNoEligibleEntries):
		return "no_eligible"
	default:
		return "error"
	}
}

// retryOnConflict runs fn and, when it fails with a concurrency error, runs
// it exactly once more.
func (e *Engine) retryOnConflict(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if !errors.Is(err, domain.ErrConcurrency) || ctx.Err() != nil {
		return err
	}
	e.logger.DebugContext(ctx, "retrying after concurrency conflict",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return fn()
}

// notify hands notifications to the dispatcher on a separate goroutine so
// slow or failing delivery never adds to the caller's latency. Delivery
// failures are the dispatcher's to log and record.
func (e *Engine) notify(ctx context.Context, notifications []domain.Notification) {
	if len(notifications) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		_ = e.dispatcher.Dispatch(ctx, notifications)
	}()
}

// Flush blocks until every notification handed off so far has been
// delivered or recorded as undelivered, or until ctx is done. Call it on
// shutdown after the last operation has returned.
func (e *Engine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// randShuffler is the production Shuffler.
type randShuffler struct{}

// Shuffle implements ports.Shuffler with a uniform Fisher-Yates shuffle.
func (randShuffler) Shuffle(n int, swap func(i, j int)) {
	// #nosec G404 - the top-level source is a randomly seeded ChaCha8
	rand.Shuffle(n, swap)
}

// nopMetrics discards all metrics.
type nopMetrics struct{}

func (nopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (nopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (nopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (nopMetrics) RecordHistogram(string, float64, map[string]string)     {}
