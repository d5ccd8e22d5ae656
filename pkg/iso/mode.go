package iso

import (
	"sync"

	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// Mode selects the wrapper's behavior for a render subtree. Exactly one
// mode is active for any given subtree; nesting an isomorphic component
// under a different mode than its ancestor is undefined behavior.
type Mode int

const (
	ModeNone      Mode = iota // plain render, no data protocol
	ModeServer                // SSR: produce-and-race, emit markers
	ModeHydration             // client: replay from hydration payload
)

type modeKey struct{}
type serverEnvKey struct{}
type hydrationEnvKey struct{}

// WithMode tags ctx with the active render mode.
func WithMode(ctx vdom.Ctx, mode Mode) vdom.Ctx {
	return vdom.WithValue(ctx, modeKey{}, mode)
}

// ModeFrom reads the active render mode, defaulting to ModeNone.
func ModeFrom(ctx vdom.Ctx) Mode {
	if m, ok := ctx.Value(modeKey{}).(Mode); ok {
		return m
	}
	return ModeNone
}

// ServerEnv is what a wrapper needs from the server render driver. The
// driver owns the registry, the output slots, and the deferred queue;
// the wrapper only reports into them.
type ServerEnv interface {
	// Registry returns this pass's stream registry.
	Registry() *Registry

	// NewElementID mints a unique element id for an instance.
	NewElementID(name string) string

	// NewSlot reserves the next output slot in render order. Slots are
	// filled immediately on the immediate path and from the deferred
	// continuation otherwise; the data callback fires in slot order.
	NewSlot() *InstanceSlot

	// Defer queues an out-of-band continuation for an instance whose
	// race did not settle within the synchronous walk.
	Defer(d DeferredRender)

	// RenderSubtree performs a full SSR re-render of one subtree under
	// ctx, used by deferred continuations.
	RenderSubtree(ctx vdom.Ctx, node *vdom.VNode) (string, error)

	// Report funnels an instance-level error to the pass's reporter.
	Report(err error)
}

// DeferredRender is one pending continuation registered during the walk.
type DeferredRender struct {
	// Token is the placeholder embedded in the walk output, replaced by
	// the continuation's rendering at this instance's position.
	Token string

	// Instance is the owning descriptor's name.
	Instance string

	// Race settles with the first emission or the instance's timeout
	// error, whichever lands first.
	Race *reactive.Future[Emission]

	// Data settles with the first emission regardless of timeout. A
	// post-timeout success is still rendered and spliced, for full-page
	// correctness, even though the timeout was already reported.
	Data *reactive.Future[Emission]

	// Slot is the output slot reserved at walk time.
	Slot *InstanceSlot

	// Continue renders the instance subtree from an emission.
	Continue func(em Emission) (string, error)
}

// InstanceSlot is one instance's position in the pass's output record,
// reserved in render order and filled when the instance resolves.
type InstanceSlot struct {
	mu     sync.Mutex
	filled bool
	rec    MarkerRecord
	data   map[string]any
}

// Fill records the instance's marker and accumulation payload.
func (s *InstanceSlot) Fill(rec MarkerRecord, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filled = true
	s.rec = rec
	s.data = data
}

// Contents returns the slot's record and payload, if filled.
func (s *InstanceSlot) Contents() (MarkerRecord, map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.data, s.filled
}

// WithServerEnv tags ctx with the pass environment and server mode.
func WithServerEnv(ctx vdom.Ctx, env ServerEnv) vdom.Ctx {
	return vdom.WithValue(WithMode(ctx, ModeServer), serverEnvKey{}, env)
}

// ServerEnvFrom reads the pass environment, or nil.
func ServerEnvFrom(ctx vdom.Ctx) ServerEnv {
	env, _ := ctx.Value(serverEnvKey{}).(ServerEnv)
	return env
}

// HydrationEnv is what a wrapper needs from the hydration driver.
type HydrationEnv interface {
	// Lookup returns the hydration payload and element id recorded for
	// an instance, matching the server-side serialization scheme.
	Lookup(name string, props vdom.Props) (payload map[string]any, elementID string, ok bool)

	// Mounted hands the driver a mounted instance for live streaming.
	Mounted(m *MountedInstance)

	// NextBridgeMemo returns the memo for the next connect bridge in
	// render order, used for equality-gated re-render suppression.
	NextBridgeMemo(channel string) *BridgeMemo

	// Report funnels an instance-level error to the driver's reporter.
	Report(err error)
}

// MountedInstance is a hydrated instance the driver keeps alive for
// subsequent live emissions.
type MountedInstance struct {
	ElementID string
	Name      string

	// Stream is the instance's data stream; emissions after the
	// hydration-derived first one drive live re-renders.
	Stream reactive.Stream[Emission]

	// State is the channel property, when the descriptor declares a
	// channel; nil otherwise.
	State *reactive.Property[vdom.Props]

	// Apply folds a new emission into the instance and returns the
	// refreshed subtree for re-rendering.
	Apply func(em Emission) *vdom.VNode
}

// BridgeMemo remembers a connect bridge's previous value and output so
// an equality predicate can suppress a redundant re-render.
type BridgeMemo struct {
	Has  bool
	Prev vdom.Props
	Node *vdom.VNode
}

// WithHydrationEnv tags ctx with the driver environment and hydration mode.
func WithHydrationEnv(ctx vdom.Ctx, env HydrationEnv) vdom.Ctx {
	return vdom.WithValue(WithMode(ctx, ModeHydration), hydrationEnvKey{}, env)
}

// HydrationEnvFrom reads the driver environment, or nil.
func HydrationEnvFrom(ctx vdom.Ctx) HydrationEnv {
	env, _ := ctx.Value(hydrationEnvKey{}).(HydrationEnv)
	return env
}
