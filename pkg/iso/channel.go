package iso

import (
	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// Channel is a named, tree-scoped propagation slot. Descriptors that
// declare a channel expose their emitted state to descendants through it
// instead of merging state into the wrapped component's props.
type Channel struct {
	name string
}

// NewChannel creates a channel reference. Panics on an empty name; a
// channel created at module initialization with no name is a programmer
// error.
func NewChannel(name string) *Channel {
	if name == "" {
		panic(isoerr.Config("channel requires a non-empty name"))
	}
	return &Channel{name: name}
}

// Name returns the channel's name.
func (c *Channel) Name() string { return c.name }

// channelKey scopes a ChannelState in the render context, per name.
type channelKey struct{ name string }

// ChannelState carries the latest emitted state to descendant
// subscribers beneath one isomorphic instance. Data is a Property, so
// subscribers obtain the current value synchronously at mount time.
type ChannelState struct {
	Name      string
	ElementID string
	Data      *reactive.Property[vdom.Props]
}

// ProvideChannel wraps children in a provider exposing cs to them.
func ProvideChannel(cs *ChannelState, children ...*vdom.VNode) *vdom.VNode {
	return vdom.Provide(channelKey{name: cs.Name}, cs, children...)
}

// ChannelFrom returns the nearest enclosing ChannelState for ch.
func ChannelFrom(ctx vdom.Ctx, ch *Channel) (*ChannelState, bool) {
	cs, ok := ctx.Value(channelKey{name: ch.name}).(*ChannelState)
	return cs, ok
}
