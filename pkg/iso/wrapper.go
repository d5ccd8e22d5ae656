package iso

import (
	"errors"

	"github.com/google/uuid"

	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// wrapper runs the produce-and-race protocol for one instance. States:
//
//	ServerFirstPass  -> ServerImmediate   (race settled within the walk)
//	ServerFirstPass  -> ServerDeferred    (continuation queued on the pass)
//	ClientHydrating  -> ClientSubscribed  (live emissions keep flowing)
//
// Render never blocks the tree walk: the deferred path returns a
// placeholder and lets the parent walk continue.
type wrapper struct {
	desc     *Descriptor
	props    vdom.Props
	children []*vdom.VNode
}

// Render implements vdom.Component.
func (w *wrapper) Render(ctx vdom.Ctx) *vdom.VNode {
	switch ModeFrom(ctx) {
	case ModeServer:
		return w.renderServer(ctx)
	case ModeHydration:
		return w.renderHydration(ctx)
	default:
		// No data protocol active: render with passthrough props only.
		return w.desc.Component(w.effectiveProps(nil))
	}
}

// effectiveProps merges emitted state under passthrough props.
// Passthrough wins key collisions; children are always forwarded.
func (w *wrapper) effectiveProps(state vdom.Props) vdom.Props {
	through := w.props
	if w.desc.Passthrough != nil {
		through = w.desc.Passthrough(w.props)
	}

	var merged vdom.Props
	if state == nil {
		merged = through.Clone()
		if merged == nil {
			merged = vdom.Props{}
		}
	} else {
		merged = state.Merge(through)
	}
	if len(w.children) > 0 {
		merged["children"] = w.children
	}
	return merged
}

func (w *wrapper) renderServer(ctx vdom.Ctx) *vdom.VNode {
	env := ServerEnvFrom(ctx)
	if env == nil {
		panic(isoerr.Config("isomorphic element %q rendered in server mode without a render pass", w.desc.Name))
	}

	if w.desc.Validate != nil {
		if err := w.desc.Validate(w.props); err != nil {
			env.Report(isoerr.Config("props validation failed for %q", w.desc.Name).Wrap(err))
			return nil
		}
	}

	key, err := DeriveKey(w.desc.Name, w.props)
	if err != nil {
		env.Report(isoerr.DataFetch(w.desc.Name, err))
		return nil
	}

	// Check-then-register is atomic; same-key instances share one stream
	// and the data function runs at most once per pass.
	stream, _ := env.Registry().GetOrCreate(key, func() reactive.Stream[Emission] {
		return reactive.HoldFirst(w.desc.GetData(w.props, nil))
	})

	race := reactive.First(stream)
	if w.desc.Timeout > 0 {
		race = reactive.First(reactive.Merge(
			race,
			reactive.ErrorAfter[Emission](w.desc.Timeout, isoerr.Timeout(w.desc.Name)),
		))
	}
	raceFut := reactive.ToFuture(race)

	if em, settleErr, settled := raceFut.Poll(); settled {
		// ServerImmediate: the race settled within the current
		// synchronous turn, so this node renders in place.
		if settleErr != nil {
			env.Report(w.annotate(settleErr))
			return nil
		}
		slot := env.NewSlot()
		return w.buildServerSubtree(env, slot, em)
	}

	// ServerDeferred: reserve this instance's output position, let the
	// walk continue, and render out-of-band once the stream or the
	// timeout resolves.
	token := uuid.NewString()
	slot := env.NewSlot()
	captured := ctx
	env.Defer(DeferredRender{
		Token:    token,
		Instance: w.desc.Name,
		Race:     raceFut,
		Data:     reactive.ToFuture(reactive.First(stream)),
		Slot:     slot,
		Continue: func(em Emission) (string, error) {
			node := w.buildServerSubtree(env, slot, em)
			if node == nil {
				return "", nil
			}
			return env.RenderSubtree(captured, node)
		},
	})
	return vdom.Raw(Placeholder(token))
}

// buildServerSubtree assembles the instance's populated output: the
// wrapped component under its container div, followed by the marker
// record. Returns nil (after reporting) when the emission violates the
// server contract.
func (w *wrapper) buildServerSubtree(env ServerEnv, slot *InstanceSlot, em Emission) *vdom.VNode {
	if em.Hydration == nil {
		env.Report(isoerr.ErrMissingHydration.WithInstance(w.desc.Name))
		return nil
	}

	elementID := env.NewElementID(w.desc.Name)
	rec := MarkerRecord{
		Name:      w.desc.Name,
		Props:     keyableProps(w.props),
		Hydration: em.Hydration,
		ElementID: elementID,
	}
	marker, err := rec.Node()
	if err != nil {
		env.Report(isoerr.DataFetch(w.desc.Name, err))
		return nil
	}
	slot.Fill(rec, em.Data)

	var content *vdom.VNode
	if w.desc.Channel != nil {
		cs := &ChannelState{
			Name:      w.desc.Channel.Name(),
			ElementID: elementID,
			Data:      reactive.PropertyOf(em.State),
		}
		content = ProvideChannel(cs, w.desc.Component(w.effectiveProps(nil)))
	} else {
		content = w.desc.Component(w.effectiveProps(em.State))
	}

	return vdom.Fragment(
		vdom.Div(vdom.Props{"id": elementID, "data-isokit-root": w.desc.Name}, content),
		marker,
	)
}

func (w *wrapper) renderHydration(ctx vdom.Ctx) *vdom.VNode {
	env := HydrationEnvFrom(ctx)
	if env == nil {
		panic(isoerr.Config("isomorphic element %q rendered in hydration mode without a hydration driver", w.desc.Name))
	}

	payload, elementID, ok := env.Lookup(w.desc.Name, w.props)
	if !ok {
		env.Report(isoerr.ErrNoHydrationState.WithInstance(w.desc.Name))
		return nil
	}

	stream := w.desc.GetData(w.props, payload)
	fut := reactive.ToFuture(reactive.First(stream))
	em, settleErr, settled := fut.Poll()
	if !settled {
		// The DataFn contract requires a synchronous emission when a
		// hydration payload is present.
		env.Report(isoerr.ErrAsyncHydration.WithInstance(w.desc.Name))
		return nil
	}
	if settleErr != nil {
		env.Report(w.annotate(settleErr))
		return nil
	}

	var state *reactive.Property[vdom.Props]
	build := func(cur Emission) *vdom.VNode {
		var content *vdom.VNode
		if w.desc.Channel != nil {
			content = ProvideChannel(&ChannelState{
				Name:      w.desc.Channel.Name(),
				ElementID: elementID,
				Data:      state,
			}, w.desc.Component(w.effectiveProps(nil)))
		} else {
			content = w.desc.Component(w.effectiveProps(cur.State))
		}
		return vdom.Div(vdom.Props{"id": elementID, "data-isokit-root": w.desc.Name}, content)
	}

	if w.desc.Channel != nil {
		state = reactive.PropertyOf(em.State)
	}
	node := build(em)

	env.Mounted(&MountedInstance{
		ElementID: elementID,
		Name:      w.desc.Name,
		Stream:    stream,
		State:     state,
		Apply: func(cur Emission) *vdom.VNode {
			if state != nil {
				state.Set(cur.State)
			}
			return build(cur)
		},
	})
	return node
}

// annotate normalizes a settle error into the taxonomy, preserving the
// timeout sentinel's identity.
func (w *wrapper) annotate(err error) error {
	var e *isoerr.Error
	if errors.As(err, &e) {
		if e.Instance == "" {
			return e.WithInstance(w.desc.Name)
		}
		return e
	}
	return isoerr.DataFetch(w.desc.Name, err)
}

// Placeholder is the token embedded at a deferred instance's position
// during the synchronous walk; the driver splices the continuation's
// output over it.
func Placeholder(token string) string {
	return "<!--isokit:pending:" + token + "-->"
}
