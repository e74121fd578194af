package application

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// keyedMutex hands out one lock per key. Entries are reference counted and
// removed when the last holder or waiter leaves, so the map does not grow
// with the number of submissions ever judged.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	// ch is a one-slot semaphore; holding the token means holding the lock.
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the lock for key, giving up after timeout or when ctx ends.
// Giving up yields a *domain.ConcurrencyError. The returned function
// releases the lock and must be called exactly once.
func (k *keyedMutex) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.release(key, l)
		}, nil
	case <-timer.C:
		k.release(key, l)
		return nil, domain.NewConcurrencyError(key, context.DeadlineExceeded)
	case <-ctx.Done():
		k.release(key, l)
		return nil, domain.NewConcurrencyError(key, ctx.Err())
	}
}

func (k *keyedMutex) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// size reports the number of live keys.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
