package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a delivery
// without calling the downstream channel.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all deliveries through.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all deliveries until the cooldown expires.
	StateOpen

	// StateHalfOpen lets a single trial delivery through; others are
	// rejected until it finishes.
	StateHalfOpen
)

// CircuitBreaker opens after maxFailures consecutive errors and stays open
// for the cooldown before probing again.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	trialInFlight    bool
	now              func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the specified configuration.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// allow reports whether a call may proceed, moving open -> half-open once
// the cooldown has passed. In half-open only the caller that claims the
// trial slot proceeds, and trial reports that it did.
func (cb *CircuitBreaker) allow() (ok, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true, false
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldownDuration {
			return false, false
		}
		cb.state = StateHalfOpen
	}
	if cb.trialInFlight {
		return false, false
	}
	cb.trialInFlight = true
	return true, true
}

func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
	}

	if err == nil {
		cb.failureCount = 0
		cb.state = StateClosed
		return
	}
	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// Call executes fn through the circuit breaker. The lock is not held while
// fn runs so concurrent deliveries are not serialized.
func (cb *CircuitBreaker) Call(fn func() error) error {
	ok, trial := cb.allow()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err, trial)
	return err
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

type circuitBreakerNotifier struct {
	next ports.Notifier
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware creates middleware that fails fast while the
// delivery channel is unhealthy.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next ports.Notifier) ports.Notifier {
		return &circuitBreakerNotifier{next: next, cb: cb}
	}
}

// Notify executes the delivery through the circuit breaker.
func (c *circuitBreakerNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	return c.cb.Call(func() error {
		return c.next.Notify(ctx, userID, event, payload)
	})
}
