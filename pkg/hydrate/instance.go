package hydrate

import (
	"sync"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// instanceEnv implements iso.HydrationEnv for one mounted instance.
type instanceEnv struct {
	record   iso.MarkerRecord
	reporter func(error)

	mounted *iso.MountedInstance

	// Bridge memos are matched by render-order cursor, which is stable
	// across re-renders of the same subtree shape.
	memos  []*iso.BridgeMemo
	cursor int
}

// Lookup matches this instance's record by name and derived key, the
// same scheme the server used to serialize it.
func (e *instanceEnv) Lookup(name string, props vdom.Props) (map[string]any, string, bool) {
	if name != e.record.Name {
		return nil, "", false
	}
	want, err1 := iso.DeriveKey(e.record.Name, e.record.Props)
	got, err2 := iso.DeriveKey(name, props)
	if err1 != nil || err2 != nil || want != got {
		return nil, "", false
	}
	return e.record.Hydration, e.record.ElementID, true
}

func (e *instanceEnv) Mounted(m *iso.MountedInstance) { e.mounted = m }

func (e *instanceEnv) NextBridgeMemo(channel string) *iso.BridgeMemo {
	if e.cursor >= len(e.memos) {
		e.memos = append(e.memos, &iso.BridgeMemo{})
	}
	memo := e.memos[e.cursor]
	e.cursor++
	return memo
}

func (e *instanceEnv) Report(err error) { e.reporter(err) }

func (e *instanceEnv) resetCursor() { e.cursor = 0 }

// Instance is one hydrated isomorphic component kept alive for live
// emissions.
type Instance struct {
	env  *instanceEnv
	opts Options

	mu       sync.Mutex
	lastHTML string

	cancel reactive.Unsubscribe
}

func newInstance(env *instanceEnv, opts Options, initialHTML string) *Instance {
	return &Instance{env: env, opts: opts, lastHTML: initialHTML}
}

// ElementID returns the server-assigned element id this instance
// occupies.
func (i *Instance) ElementID() string { return i.env.record.ElementID }

// Name returns the descriptor name.
func (i *Instance) Name() string { return i.env.record.Name }

// CurrentHTML returns the instance's latest rendered markup.
func (i *Instance) CurrentHTML() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastHTML
}

// Close detaches the instance from its stream.
func (i *Instance) Close() {
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
}

// listen subscribes to the instance's stream. Current-value streams
// replay the already-rendered emission synchronously on subscribe; that
// replay re-renders to byte-identical markup and falls out at the
// changed check in onEmission, so every delivered value goes through the
// same path and an emission racing the subscribe is never dropped.
func (i *Instance) listen() {
	m := i.env.mounted
	i.cancel = m.Stream.Subscribe(reactive.Observer[iso.Emission]{
		OnValue: i.onEmission,
		OnError: func(err error) {
			i.opts.Reporter(err)
		},
	})
}

// onEmission re-renders the subtree from a live emission and pushes the
// fragment when it actually changed. Equality-gated bridges render from
// their memos, so a fully suppressed subtree produces identical markup
// and no push.
func (i *Instance) onEmission(em iso.Emission) {
	node := i.env.mounted.Apply(em)
	i.env.resetCursor()

	ctx := iso.WithHydrationEnv(vdom.Background(), i.env)
	html, err := i.opts.Renderer.RenderToString(ctx, node)
	if err != nil {
		i.opts.Reporter(err)
		return
	}

	i.mu.Lock()
	changed := html != i.lastHTML
	if changed {
		i.lastHTML = html
	}
	i.mu.Unlock()

	if !changed || i.opts.Sink == nil {
		return
	}
	if err := i.opts.Sink.Replace(i.ElementID(), html); err != nil {
		i.opts.Reporter(err)
	}
}
