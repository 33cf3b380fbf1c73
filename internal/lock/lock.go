// Package lock serializes critical sections such as the leaderboard ranking
// pass, either across processes (Redis) or within one process.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when the lock could not be acquired before the
// wait deadline.
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Locker acquires a named exclusive lock. The returned release func must be
// called exactly once; releasing after the lock expired is a no-op.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}

// LocalLocker is an in-process Locker keyed by name.
type LocalLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker returns a Locker that waits at most timeout for a held lock.
// A zero timeout waits until ctx is done.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{
		timeout: timeout,
		slots:   make(map[string]chan struct{}),
	}
}

func (l *LocalLocker) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	ch := l.slot(name)

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	select {
	case ch <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
