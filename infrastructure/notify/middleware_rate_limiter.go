package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// rateLimitedNotifier paces deliveries with a token bucket so a large
// winner announcement does not trip the provider's rate limits.
type rateLimitedNotifier struct {
	next    ports.Notifier
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting using a
// token bucket. limit is deliveries per second; burst allows short spikes.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ports.Notifier) ports.Notifier {
		return &rateLimitedNotifier{next: next, limiter: limiter}
	}
}

// Notify waits for a token before forwarding the delivery.
func (r *rateLimitedNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Notify(ctx, userID, event, payload)
}
