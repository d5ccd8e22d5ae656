package iso

import (
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// ChannelValue extracts the latest value of ch from the render context.
// It is the lower-level equivalent of Connect for consumers that prefer
// direct state extraction over a child-render-prop pattern. Panics with
// a configuration error when no enclosing matching channel exists.
func ChannelValue(ctx vdom.Ctx, ch *Channel) vdom.Props {
	return channelCurrent(ctx, ch)
}

// SubscribeChannel attaches an observer to the nearest enclosing
// channel's stream. The current value is delivered synchronously before
// SubscribeChannel returns; an optional equality predicate suppresses
// deliveries whose value equals the previously delivered one.
func SubscribeChannel(ctx vdom.Ctx, ch *Channel, onValue func(vdom.Props), equals func(prev, next vdom.Props) bool) reactive.Unsubscribe {
	// Resolve eagerly so misuse surfaces at mount, not first emission.
	_ = channelCurrent(ctx, ch)
	cs, _ := ChannelFrom(ctx, ch)

	var (
		prev    vdom.Props
		hasPrev bool
	)
	return cs.Data.Subscribe(reactive.Observer[vdom.Props]{
		OnValue: func(v vdom.Props) {
			if hasPrev && equals != nil && equals(prev, v) {
				return
			}
			prev = v
			hasPrev = true
			onValue(v)
		},
	})
}
