package queue

import (
	"context"
	"sync"
)

// Future is the pending result of one submitted unit of work.
// It resolves exactly once.
type Future[T any] struct {
	value T
	err   error
	done  chan struct{}
	once  sync.Once
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve stores the result. It reports false if the future was already
// resolved, in which case v and err are dropped.
func (f *Future[T]) resolve(v T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the unit finishes or ctx ends. Abandoning the wait does
// not cancel the unit; it still runs and its result is discarded.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether the result is available without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
