package iso

import (
	"time"

	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/vdom"
)

// Descriptor declares one isomorphic component type. Descriptors are
// immutable once constructed; create one per component type at module
// initialization and reuse it for the process lifetime.
type Descriptor struct {
	// Name uniquely identifies the component type. It must be stable
	// across server and client, since hydration records are matched on it.
	Name string

	// Component renders the wrapped component from its effective props.
	Component func(props vdom.Props) *vdom.VNode

	// Channel, when set, exposes emitted state to descendants through a
	// ChannelState instead of merging it into Component's props.
	Channel *Channel

	// GetData produces the instance's data stream.
	GetData DataFn

	// Passthrough maps instance props to props handed to Component.
	// Passthrough-supplied props win key collisions against emitted
	// state. Nil means the instance props pass through unchanged.
	Passthrough func(props vdom.Props) vdom.Props

	// Timeout bounds the wait for the stream's first emission in server
	// mode. Zero means wait indefinitely. It never cancels an
	// already-resolved render.
	Timeout time.Duration

	// Validate, when set, checks instance props at render time.
	Validate func(props vdom.Props) error
}

// NewDescriptor validates and freezes a descriptor. Missing required
// fields are programmer errors and panic.
func NewDescriptor(d Descriptor) *Descriptor {
	if d.Name == "" {
		panic(isoerr.Config("descriptor requires a name"))
	}
	if d.Component == nil {
		panic(isoerr.Config("descriptor %q requires a component", d.Name))
	}
	if d.GetData == nil {
		panic(isoerr.Config("descriptor %q requires a data function", d.Name))
	}
	frozen := d
	return &frozen
}

// Element creates an instance of the descriptor with the given props.
// The returned node runs the wrapper state machine when rendered.
func (d *Descriptor) Element(props vdom.Props, children ...*vdom.VNode) *vdom.VNode {
	return vdom.Comp(&wrapper{desc: d, props: props, children: children})
}
