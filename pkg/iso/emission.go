package iso

import (
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// Emission is one value produced by a data stream.
type Emission struct {
	// State is injected as the rendered component's effective props, or
	// published on the channel when the descriptor declares one.
	State vdom.Props

	// Hydration is the minimal payload serialized into the rendered
	// output for client-side replay. Required on the first server-mode
	// emission; ignored client-side.
	Hydration map[string]any

	// Data is caller-defined out-of-band accumulation (cache lifetimes
	// and the like). Never rendered; surfaced through the server
	// driver's data callback.
	Data map[string]any
}

// DataFn produces the data stream for an instance. When hydration is
// non-nil the returned stream MUST emit synchronously on first subscribe,
// without performing network I/O; the hydration driver relies on that to
// render without a visible loading state.
type DataFn func(props vdom.Props, hydration map[string]any) reactive.Stream[Emission]
