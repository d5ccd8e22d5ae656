package iso

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/isokit/isokit/pkg/reactive"
)

// Registry is the per-render-pass store mapping a request key to its
// in-flight or completed data stream. It guarantees at-most-one stream
// creation per key per pass.
//
// A Registry's lifetime is exactly one render pass; the server driver
// instantiates a fresh one per pass. Reusing a registry across passes
// serves stale data and is a correctness bug.
//
// The tree walk itself is synchronous, but deferred continuations resolve
// on producer goroutines, so the check-then-register step is atomic
// (LoadOrCompute) rather than relying on single-threaded discipline.
type Registry struct {
	entries *xsync.MapOf[string, reactive.Stream[Emission]]

	hits    atomic.Int64
	created atomic.Int64
}

// NewRegistry creates an empty registry for one render pass.
func NewRegistry() *Registry {
	return &Registry{entries: xsync.NewMapOf[string, reactive.Stream[Emission]]()}
}

// Get returns the stream registered for key, if any.
func (r *Registry) Get(key string) (reactive.Stream[Emission], bool) {
	return r.entries.Load(key)
}

// GetOrCreate returns the stream for key, invoking create exactly once
// per key to produce it. Registering an already-registered key is a
// no-op that returns the existing stream; the boolean reports whether
// create ran.
func (r *Registry) GetOrCreate(key string, create func() reactive.Stream[Emission]) (reactive.Stream[Emission], bool) {
	s, loaded := r.entries.LoadOrCompute(key, create)
	if loaded {
		r.hits.Add(1)
	} else {
		r.created.Add(1)
	}
	return s, !loaded
}

// DedupHits reports how many lookups found an already-registered stream.
func (r *Registry) DedupHits() int64 { return r.hits.Load() }

// StreamsCreated reports how many distinct streams this pass created.
func (r *Registry) StreamsCreated() int64 { return r.created.Load() }
