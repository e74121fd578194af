package notify

import (
	"context"
	"time"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// timeoutNotifier bounds each delivery attempt.
type timeoutNotifier struct {
	next    ports.Notifier
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces a per-call timeout so a
// slow delivery channel cannot hold up the request that triggered it.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next ports.Notifier) ports.Notifier {
		return &timeoutNotifier{next: next, timeout: timeout}
	}
}

// Notify executes the delivery with a timeout context.
func (t *timeoutNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Notify(ctx, userID, event, payload)
}
