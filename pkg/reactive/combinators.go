package reactive

import (
	"sync"
	"time"
)

// Once returns a stream that synchronously emits v and ends on subscribe.
func Once[T any](v T) Stream[T] {
	return streamFunc[T](func(o Observer[T]) Unsubscribe {
		o.value(v)
		o.end()
		return func() {}
	})
}

// FailWith returns a stream that synchronously errors on subscribe.
func FailWith[T any](err error) Stream[T] {
	return streamFunc[T](func(o Observer[T]) Unsubscribe {
		o.fail(err)
		o.end()
		return func() {}
	})
}

// streamFunc adapts a subscribe function to the Stream interface.
type streamFunc[T any] func(Observer[T]) Unsubscribe

func (f streamFunc[T]) Subscribe(o Observer[T]) Unsubscribe { return f(o) }

// Map transforms each value of s with fn. Errors and end pass through.
func Map[T, U any](s Stream[T], fn func(T) U) Stream[U] {
	return streamFunc[U](func(o Observer[U]) Unsubscribe {
		return s.Subscribe(Observer[T]{
			OnValue: func(v T) { o.value(fn(v)) },
			OnError: o.OnError,
			OnEnd:   o.OnEnd,
		})
	})
}

// Merge interleaves two streams. The merged stream errors as soon as
// either input errors, and ends when both inputs have ended.
func Merge[T any](a, b Stream[T]) Stream[T] {
	return streamFunc[T](func(o Observer[T]) Unsubscribe {
		var (
			mu    sync.Mutex
			ended int
			done  bool
		)
		endOne := func() {
			mu.Lock()
			ended++
			fire := ended == 2 && !done
			if fire {
				done = true
			}
			mu.Unlock()
			if fire {
				o.end()
			}
		}
		failOnce := func(err error) {
			mu.Lock()
			fire := !done
			done = true
			mu.Unlock()
			if fire {
				o.fail(err)
				o.end()
			}
		}
		guardValue := func(v T) {
			mu.Lock()
			fire := !done
			mu.Unlock()
			if fire {
				o.value(v)
			}
		}

		obs := Observer[T]{OnValue: guardValue, OnError: failOnce, OnEnd: endOne}
		cancelA := a.Subscribe(obs)
		cancelB := b.Subscribe(obs)
		return func() {
			cancelA()
			cancelB()
		}
	})
}

// First narrows s to its first settle: one value (then end) or one error.
// The upstream subscription is cancelled as soon as the first event lands,
// but the upstream producer itself keeps running; losing race branches are
// abandoned, not cancelled.
func First[T any](s Stream[T]) Stream[T] {
	return streamFunc[T](func(o Observer[T]) Unsubscribe {
		var (
			mu       sync.Mutex
			done     bool
			upstream Unsubscribe
		)
		settle := func(deliver func()) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			cancel := upstream
			mu.Unlock()
			deliver()
			if cancel != nil {
				cancel()
			}
		}

		cancel := s.Subscribe(Observer[T]{
			OnValue: func(v T) {
				settle(func() {
					o.value(v)
					o.end()
				})
			},
			OnError: func(err error) {
				settle(func() {
					o.fail(err)
					o.end()
				})
			},
			OnEnd: func() {
				settle(func() {
					o.fail(ErrEmptyStream)
					o.end()
				})
			},
		})

		mu.Lock()
		upstream = cancel
		settled := done
		mu.Unlock()
		if settled {
			cancel()
			return func() {}
		}
		return cancel
	})
}

// ErrorAfter returns a stream that errors with err once d has elapsed.
// Unsubscribing before expiry stops the timer.
func ErrorAfter[T any](d time.Duration, err error) Stream[T] {
	return streamFunc[T](func(o Observer[T]) Unsubscribe {
		timer := time.AfterFunc(d, func() {
			o.fail(err)
			o.end()
		})
		return func() { timer.Stop() }
	})
}

// HoldFirst eagerly subscribes to s and caches its first settle (value or
// error), replaying it synchronously to every subscriber, present or
// future. Later upstream emissions are not retained. This is the replay
// wrapper the stream registry stores so that same-key instances rendered
// after the first emission still take the immediate path.
func HoldFirst[T any](s Stream[T]) Stream[T] {
	h := &holdFirst[T]{waiters: make(map[uint64]Observer[T])}
	h.cancel = First(s).Subscribe(Observer[T]{
		OnValue: func(v T) { h.settle(v, nil) },
		OnError: func(err error) { var zero T; h.settle(zero, err) },
	})
	return h
}

type holdFirst[T any] struct {
	mu      sync.Mutex
	waiters map[uint64]Observer[T]
	next    uint64
	settled bool
	val     T
	err     error
	cancel  Unsubscribe
}

func (h *holdFirst[T]) settle(v T, err error) {
	h.mu.Lock()
	if h.settled {
		h.mu.Unlock()
		return
	}
	h.settled = true
	h.val = v
	h.err = err
	waiters := make([]Observer[T], 0, len(h.waiters))
	for _, o := range h.waiters {
		waiters = append(waiters, o)
	}
	h.waiters = make(map[uint64]Observer[T])
	h.mu.Unlock()

	for _, o := range waiters {
		h.deliver(o, v, err)
	}
}

func (h *holdFirst[T]) deliver(o Observer[T], v T, err error) {
	if err != nil {
		o.fail(err)
	} else {
		o.value(v)
	}
	o.end()
}

func (h *holdFirst[T]) Subscribe(o Observer[T]) Unsubscribe {
	h.mu.Lock()
	if h.settled {
		v, err := h.val, h.err
		h.mu.Unlock()
		h.deliver(o, v, err)
		return func() {}
	}
	id := h.next
	h.next++
	h.waiters[id] = o
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.waiters, id)
		h.mu.Unlock()
	}
}
