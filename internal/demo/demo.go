// Package demo wires a small showcase page: a profile card whose data
// resolves synchronously, and an activity feed whose data arrives after
// a configurable delay, publishing through a channel to connected
// descendants. The serve and render commands use it as their default
// content.
package demo

import (
	"fmt"
	"time"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// FeedChannel carries the feed's emitted state to its descendants.
var FeedChannel = iso.NewChannel("demo.feed")

// Profile resolves immediately: the data function derives everything
// from props in the same synchronous turn, so server renders never
// defer it.
var Profile = iso.NewDescriptor(iso.Descriptor{
	Name: "demo.profile",
	Component: func(props vdom.Props) *vdom.VNode {
		name, _ := props["display_name"].(string)
		bio, _ := props["bio"].(string)
		return vdom.Div(vdom.Props{"className": "profile"},
			vdom.H2(nil, vdom.Text(name)),
			vdom.P(nil, vdom.Text(bio)),
		)
	},
	GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
		user := propString(props, "user", "guest")
		if hydration != nil {
			return reactive.Once(iso.Emission{
				State: vdom.Props{
					"display_name": hydration["display_name"],
					"bio":          hydration["bio"],
				},
			})
		}
		display := "User " + user
		bio := fmt.Sprintf("Member %s since 2024.", user)
		return reactive.Once(iso.Emission{
			State:     vdom.Props{"display_name": display, "bio": bio},
			Hydration: map[string]any{"display_name": display, "bio": bio},
			Data:      map[string]any{"ttl_seconds": 300},
		})
	},
	Timeout: 2 * time.Second,
})

// NewFeed builds the feed descriptor with a fixed fetch delay, so
// callers can force either the immediate or the deferred path.
func NewFeed(delay time.Duration, timeout time.Duration) *iso.Descriptor {
	return iso.NewDescriptor(iso.Descriptor{
		Name:    "demo.feed",
		Channel: FeedChannel,
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.Section(vdom.Props{"className": "feed"},
				vdom.H2(nil, vdom.Text("Activity")),
				iso.Connect(FeedChannel, feedItems, iso.WithEquals(sameItems)),
			)
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if hydration != nil {
				return reactive.Once(iso.Emission{
					State: vdom.Props{"items": hydration["items"]},
				})
			}
			items := fetchItems(propString(props, "user", "guest"))
			em := iso.Emission{
				State:     vdom.Props{"items": items},
				Hydration: map[string]any{"items": items},
				Data:      map[string]any{"ttl_seconds": 60},
			}
			if delay <= 0 {
				return reactive.Once(em)
			}
			return delayed(em, delay)
		},
		Timeout: timeout,
	})
}

// Page assembles the demo roots for one user, in page order.
func Page(user string, feed *iso.Descriptor) []*vdom.VNode {
	props := vdom.Props{"user": user}
	return []*vdom.VNode{
		vdom.H1(nil, vdom.Text("isokit demo")),
		Profile.Element(props),
		feed.Element(props),
	}
}

func feedItems(state vdom.Props) *vdom.VNode {
	items, _ := state["items"].([]string)
	if raw, ok := state["items"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				items = append(items, s)
			}
		}
	}
	children := make([]*vdom.VNode, 0, len(items))
	for _, item := range items {
		children = append(children, vdom.Li(nil, vdom.Text(item)))
	}
	return vdom.Ul(vdom.Props{"className": "feed-items"}, children...)
}

// sameItems suppresses re-renders when the item list is unchanged.
func sameItems(prev, next vdom.Props) bool {
	a := fmt.Sprintf("%v", prev["items"])
	b := fmt.Sprintf("%v", next["items"])
	return a == b
}

func fetchItems(user string) []string {
	return []string{
		user + " joined the beta",
		user + " published a post",
		user + " commented on a thread",
	}
}

// delayed emits em once after d on a timer.
func delayed(em iso.Emission, d time.Duration) reactive.Stream[iso.Emission] {
	bus := reactive.NewBus[iso.Emission]()
	time.AfterFunc(d, func() {
		bus.Push(em)
		bus.End()
	})
	return bus
}

func propString(props vdom.Props, key, fallback string) string {
	if s, ok := props[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
