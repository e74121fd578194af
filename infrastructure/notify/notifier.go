// Package notify delivers engine events to users through a pluggable
// ports.Notifier, with production concerns layered on as middleware.
//
// The engine never fails a primary operation because a notification could
// not be delivered. Dispatcher owns that policy: it fans deliveries out,
// logs failures as domain.NotificationDeliveryError and records them in the
// store outbox for later reconciliation.
//
// Basic usage:
//
//	notifier := notify.Chain(
//	    notify.NewWebhookNotifier(url, nil),
//	    notify.TracingMiddleware("judged"),
//	    notify.MetricsMiddleware(collector),
//	    notify.RetryMiddleware(3, 100*time.Millisecond, 2*time.Second),
//	    notify.CircuitBreakerMiddleware(5, 30*time.Second),
//	    notify.RateLimitMiddleware(50, 100),
//	    notify.TimeoutMiddleware(5*time.Second),
//	)
//	dispatcher := notify.NewDispatcher(notifier, store, logger, 8)
package notify

import (
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// Middleware wraps a Notifier with a cross-cutting concern.
type Middleware func(next ports.Notifier) ports.Notifier

// Chain wraps base with the middleware in order: the first middleware is
// the outermost layer and sees each call first.
func Chain(base ports.Notifier, middleware ...Middleware) ports.Notifier {
	n := base
	for i := len(middleware) - 1; i >= 0; i-- {
		n = middleware[i](n)
	}
	return n
}
