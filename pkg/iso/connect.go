package iso

import (
	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/vdom"
)

// ConnectOption configures a connect bridge.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	equals func(prev, next vdom.Props) bool
}

// WithEquals supplies an equality predicate. When the predicate reports
// the new value equal to the previous one, the bridge retains its
// previous rendered output instead of re-rendering.
func WithEquals(equals func(prev, next vdom.Props) bool) ConnectOption {
	return func(c *connectConfig) {
		c.equals = equals
	}
}

// Connect subscribes a rendering subtree to the nearest enclosing
// channel's latest value, independent of tree position. The child render
// function receives the current value synchronously at mount — the
// channel is a current-value-bearing property, so there is no flash of
// empty state.
//
// Using Connect without an enclosing matching channel is a configuration
// error and panics at render time.
func Connect(ch *Channel, child func(state vdom.Props) *vdom.VNode, opts ...ConnectOption) *vdom.VNode {
	var cfg connectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return vdom.Comp(vdom.Func(func(ctx vdom.Ctx) *vdom.VNode {
		state := channelCurrent(ctx, ch)

		if cfg.equals != nil {
			if env := HydrationEnvFrom(ctx); env != nil {
				memo := env.NextBridgeMemo(ch.Name())
				if memo.Has && cfg.equals(memo.Prev, state) {
					return memo.Node
				}
				node := child(state)
				memo.Has = true
				memo.Prev = state
				memo.Node = node
				return node
			}
		}

		return child(state)
	}))
}

// channelCurrent resolves the nearest channel state's current value or
// panics with a configuration error.
func channelCurrent(ctx vdom.Ctx, ch *Channel) vdom.Props {
	cs, ok := ChannelFrom(ctx, ch)
	if !ok {
		panic(isoerr.Config("no enclosing channel %q; connect used outside its provider", ch.Name()))
	}
	state, has := cs.Data.Current()
	if !has {
		panic(isoerr.Config("channel %q has no current value at mount", ch.Name()))
	}
	return state
}
