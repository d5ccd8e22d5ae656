package reactive

import "sync"

// Observer receives stream events. Callbacks may be nil; nil callbacks
// drop the corresponding event.
type Observer[T any] struct {
	OnValue func(T)
	OnError func(error)
	OnEnd   func()
}

func (o Observer[T]) value(v T) {
	if o.OnValue != nil {
		o.OnValue(v)
	}
}

func (o Observer[T]) fail(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

func (o Observer[T]) end() {
	if o.OnEnd != nil {
		o.OnEnd()
	}
}

// Unsubscribe detaches an observer from a stream. Safe to call more
// than once.
type Unsubscribe func()

// Stream is a push-based sequence of values terminated by at most one
// error or end event. Subscription may deliver events synchronously
// during the Subscribe call itself (a "current turn" settle); callers
// that care use ToFuture, which records that distinction.
type Stream[T any] interface {
	Subscribe(o Observer[T]) Unsubscribe
}

// Bus is a manually-pushed stream. It is the producer-side primitive
// data functions typically build on.
type Bus[T any] struct {
	mu   sync.Mutex
	subs map[uint64]Observer[T]
	next uint64
	done bool
	err  error
}

// NewBus creates an empty Bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[uint64]Observer[T])}
}

// Subscribe implements Stream. Subscribing to a terminated bus delivers
// the terminal event synchronously.
func (b *Bus[T]) Subscribe(o Observer[T]) Unsubscribe {
	b.mu.Lock()
	if b.done {
		err := b.err
		b.mu.Unlock()
		if err != nil {
			o.fail(err)
		}
		o.end()
		return func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = o
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Push delivers v to all current subscribers. No-op after termination.
func (b *Bus[T]) Push(v T) {
	for _, o := range b.snapshot() {
		o.value(v)
	}
}

// Fail terminates the bus with err.
func (b *Bus[T]) Fail(err error) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	b.done = true
	b.err = err
	subs := b.drain()
	b.mu.Unlock()

	for _, o := range subs {
		o.fail(err)
		o.end()
	}
}

// End terminates the bus normally.
func (b *Bus[T]) End() {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	b.done = true
	subs := b.drain()
	b.mu.Unlock()

	for _, o := range subs {
		o.end()
	}
}

// snapshot copies subscribers so notification happens without the lock held.
func (b *Bus[T]) snapshot() []Observer[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return nil
	}
	out := make([]Observer[T], 0, len(b.subs))
	for _, o := range b.subs {
		out = append(out, o)
	}
	return out
}

func (b *Bus[T]) drain() []Observer[T] {
	out := make([]Observer[T], 0, len(b.subs))
	for _, o := range b.subs {
		out = append(out, o)
	}
	b.subs = make(map[uint64]Observer[T])
	return out
}
