package reactive

import "sync"

// Property is a current-value-bearing stream: new subscribers receive the
// latest value synchronously at subscription time, then future updates.
// This is the "behavior" semantics the connect bridge requires so that
// the initial render never observes an empty state.
type Property[T any] struct {
	mu    sync.Mutex
	subs  map[uint64]Observer[T]
	next  uint64
	has   bool
	cur   T
	equal func(T, T) bool
	done  bool
	err   error
}

// NewProperty creates an empty Property with no current value.
func NewProperty[T any]() *Property[T] {
	return &Property[T]{subs: make(map[uint64]Observer[T])}
}

// PropertyOf creates a Property seeded with an initial value.
func PropertyOf[T any](v T) *Property[T] {
	p := NewProperty[T]()
	p.has = true
	p.cur = v
	return p
}

// WithEquals configures an equality function; Set calls whose value is
// equal to the current one are suppressed and notify nobody.
func (p *Property[T]) WithEquals(fn func(T, T) bool) *Property[T] {
	p.mu.Lock()
	p.equal = fn
	p.mu.Unlock()
	return p
}

// Current returns the latest value, if any.
func (p *Property[T]) Current() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur, p.has
}

// Subscribe implements Stream. The current value (if any) is delivered
// synchronously before Subscribe returns.
func (p *Property[T]) Subscribe(o Observer[T]) Unsubscribe {
	p.mu.Lock()
	replay, hasReplay := p.cur, p.has
	if p.done {
		err := p.err
		p.mu.Unlock()
		if hasReplay {
			o.value(replay)
		}
		if err != nil {
			o.fail(err)
		}
		o.end()
		return func() {}
	}
	id := p.next
	p.next++
	p.subs[id] = o
	p.mu.Unlock()

	if hasReplay {
		o.value(replay)
	}

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Set updates the current value and notifies subscribers, unless the
// configured equality function reports no change.
func (p *Property[T]) Set(v T) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	if p.has && p.equal != nil && p.equal(p.cur, v) {
		p.mu.Unlock()
		return
	}
	p.cur = v
	p.has = true
	subs := make([]Observer[T], 0, len(p.subs))
	for _, o := range p.subs {
		subs = append(subs, o)
	}
	p.mu.Unlock()

	for _, o := range subs {
		o.value(v)
	}
}

// Fail terminates the property with err.
func (p *Property[T]) Fail(err error) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.err = err
	subs := p.drainLocked()
	p.mu.Unlock()

	for _, o := range subs {
		o.fail(err)
		o.end()
	}
}

// End terminates the property normally. The current value remains
// observable via Current and is still replayed to late subscribers.
func (p *Property[T]) End() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	subs := p.drainLocked()
	p.mu.Unlock()

	for _, o := range subs {
		o.end()
	}
}

func (p *Property[T]) drainLocked() []Observer[T] {
	out := make([]Observer[T], 0, len(p.subs))
	for _, o := range p.subs {
		out = append(out, o)
	}
	p.subs = make(map[uint64]Observer[T])
	return out
}
