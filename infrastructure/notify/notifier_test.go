package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// mockNotifier records calls and can fail a fixed number of times.
type mockNotifier struct {
	mu sync.Mutex
	// Error is returned on every call when set.
	Error error
	// FailUntilAttempt fails calls with a transient error until the call
	// count exceeds it.
	FailUntilAttempt int
	calls            []string
	lastCtx          context.Context
}

func newMockNotifier() *mockNotifier { return &mockNotifier{} }

func (m *mockNotifier) Notify(ctx context.Context, userID string, _ domain.EventType, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID)
	m.lastCtx = ctx
	if m.Error != nil {
		return m.Error
	}
	if len(m.calls) <= m.FailUntilAttempt {
		return errors.New("transient failure")
	}
	return nil
}

func (m *mockNotifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next ports.Notifier) ports.Notifier {
			return ports.NotifierFunc(func(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
				order = append(order, name)
				return next.Notify(ctx, userID, event, payload)
			})
		}
	}

	mock := newMockNotifier()
	n := Chain(mock, tag("outer"), tag("inner"))
	require.NoError(t, n.Notify(context.Background(), "u1", domain.EventContestWinner, nil))

	assert.Equal(t, []string{"outer", "inner"}, order, "first middleware should see the call first")
	assert.Equal(t, 1, mock.callCount())
}

func TestChain_NoMiddleware(t *testing.T) {
	mock := newMockNotifier()
	n := Chain(mock)
	require.NoError(t, n.Notify(context.Background(), "u1", domain.EventJudgeAssigned, nil))
	assert.Equal(t, 1, mock.callCount())
}
