package ssr

import (
	"sync"

	"github.com/google/uuid"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/vdom"
)

// pass is one render pass's shared state. It implements iso.ServerEnv.
// The registry is the only structure instances mutate concurrently;
// slots and the deferred queue are appended during the synchronous walk
// and filled from continuation goroutines, hence the mutex.
type pass struct {
	cfg      config
	registry *iso.Registry

	mu            sync.Mutex
	slots         []*iso.InstanceSlot
	deferred      []iso.DeferredRender
	deferredTotal int
	errs          []error

	timeouts int
}

func newPass(cfg config) *pass {
	return &pass{
		cfg:      cfg,
		registry: iso.NewRegistry(),
	}
}

// Registry implements iso.ServerEnv.
func (p *pass) Registry() *iso.Registry { return p.registry }

// NewElementID implements iso.ServerEnv.
func (p *pass) NewElementID(name string) string {
	return name + "-" + uuid.NewString()
}

// NewSlot implements iso.ServerEnv.
func (p *pass) NewSlot() *iso.InstanceSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot := &iso.InstanceSlot{}
	p.slots = append(p.slots, slot)
	return slot
}

// Defer implements iso.ServerEnv.
func (p *pass) Defer(d iso.DeferredRender) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deferred = append(p.deferred, d)
	p.deferredTotal++
}

// RenderSubtree implements iso.ServerEnv. Continuations re-render just
// their subtree with the context captured at walk time.
func (p *pass) RenderSubtree(ctx vdom.Ctx, node *vdom.VNode) (string, error) {
	return p.cfg.renderer.RenderToString(ctx, node)
}

// Report implements iso.ServerEnv.
func (p *pass) Report(err error) {
	if err == nil {
		return
	}
	p.cfg.logger.Warn("instance render error", "error", err)
	if p.cfg.reporter != nil {
		p.cfg.reporter(err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// takePending drains the deferred queue. Resolving one batch can defer
// more work when a continuation's subtree contains further instances,
// so the driver calls this until it returns empty.
func (p *pass) takePending() []iso.DeferredRender {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.deferred
	p.deferred = nil
	return out
}

// emitData invokes the accumulation callback once per instance carrying
// data, in render order.
func (p *pass) emitData(onData DataFunc) {
	if onData == nil {
		return
	}
	p.mu.Lock()
	slots := make([]*iso.InstanceSlot, len(p.slots))
	copy(slots, p.slots)
	p.mu.Unlock()

	for _, slot := range slots {
		rec, data, filled := slot.Contents()
		if filled && data != nil {
			onData(rec.Name, rec.ElementID, data)
		}
	}
}
