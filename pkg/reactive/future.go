package reactive

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptyStream is reported when a stream ends without ever producing
// a value while a first-value consumer was waiting.
var ErrEmptyStream = errors.New("reactive: stream ended without a value")

// Future is the first resolution of a stream as an awaitable. It settles
// exactly once, with a value or an error, and records whether the settle
// happened synchronously during ToFuture itself — the flag the isomorphic
// wrapper uses to pick the immediate render path over the deferred one.
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	val      T
	err      error
	settled  bool
	syncTurn bool
	inCtor   bool
	cancel   Unsubscribe
}

// ToFuture subscribes to s and resolves with its first value or error.
func ToFuture[T any](s Stream[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), inCtor: true}
	cancel := First(s).Subscribe(Observer[T]{
		OnValue: func(v T) { f.settle(v, nil) },
		OnError: func(err error) { var zero T; f.settle(zero, err) },
	})

	f.mu.Lock()
	f.inCtor = false
	if f.settled {
		f.mu.Unlock()
		cancel()
		return f
	}
	f.cancel = cancel
	f.mu.Unlock()
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.val = v
	f.err = err
	f.syncTurn = f.inCtor
	cancel := f.cancel
	f.cancel = nil
	close(f.done)
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Poll returns the settled value or error without blocking. The boolean
// reports whether the future has settled at all.
func (f *Future[T]) Poll() (T, error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val, f.err, f.settled
}

// SettledSynchronously reports whether the settle happened inside the
// ToFuture call itself (same synchronous turn).
func (f *Future[T]) SettledSynchronously() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled && f.syncTurn
}

// Await blocks until the future settles or ctx is cancelled.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
