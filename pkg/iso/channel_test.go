package iso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/render"
	"github.com/isokit/isokit/pkg/vdom"
)

func TestNewChannelRequiresName(t *testing.T) {
	assert.Panics(t, func() { NewChannel("") })
}

func TestChannelFromScopesByName(t *testing.T) {
	chA := NewChannel("a")
	chB := NewChannel("b")
	cs := &ChannelState{Name: "a", Data: reactive.PropertyOf(vdom.Props{"v": 1})}

	var gotA, gotB bool
	probe := vdom.Comp(vdom.Func(func(ctx vdom.Ctx) *vdom.VNode {
		_, gotA = ChannelFrom(ctx, chA)
		_, gotB = ChannelFrom(ctx, chB)
		return nil
	}))

	_, err := render.New(render.Config{}).RenderToString(vdom.Background(), ProvideChannel(cs, probe))
	require.NoError(t, err)

	assert.True(t, gotA)
	assert.False(t, gotB, "channel b must not see channel a's state")
}

func TestConnectReceivesCurrentValue(t *testing.T) {
	ch := NewChannel("feed")
	cs := &ChannelState{Name: "feed", Data: reactive.PropertyOf(vdom.Props{"count": 3})}

	tree := ProvideChannel(cs, Connect(ch, func(state vdom.Props) *vdom.VNode {
		return vdom.Textf("count=%v", state["count"])
	}))

	html, err := render.New(render.Config{}).RenderToString(vdom.Background(), tree)
	require.NoError(t, err)
	assert.Equal(t, "count=3", html)
}

func TestConnectWithoutProviderPanics(t *testing.T) {
	ch := NewChannel("feed")
	tree := Connect(ch, func(state vdom.Props) *vdom.VNode { return nil })

	assert.Panics(t, func() {
		render.New(render.Config{}).RenderToString(vdom.Background(), tree)
	})
}

func TestConnectWithEmptyChannelPanics(t *testing.T) {
	ch := NewChannel("feed")
	cs := &ChannelState{Name: "feed", Data: reactive.NewProperty[vdom.Props]()}
	tree := ProvideChannel(cs, Connect(ch, func(state vdom.Props) *vdom.VNode { return nil }))

	assert.Panics(t, func() {
		render.New(render.Config{}).RenderToString(vdom.Background(), tree)
	})
}

func TestChannelValue(t *testing.T) {
	ch := NewChannel("feed")
	cs := &ChannelState{Name: "feed", Data: reactive.PropertyOf(vdom.Props{"v": "x"})}

	var got vdom.Props
	probe := vdom.Comp(vdom.Func(func(ctx vdom.Ctx) *vdom.VNode {
		got = ChannelValue(ctx, ch)
		return nil
	}))

	_, err := render.New(render.Config{}).RenderToString(vdom.Background(), ProvideChannel(cs, probe))
	require.NoError(t, err)
	assert.Equal(t, "x", got["v"])
}

func TestSubscribeChannelDeliversAndSuppresses(t *testing.T) {
	ch := NewChannel("feed")
	prop := reactive.PropertyOf(vdom.Props{"n": 1})
	cs := &ChannelState{Name: "feed", Data: prop}

	var seen []vdom.Props
	equals := func(prev, next vdom.Props) bool { return prev["n"] == next["n"] }

	probe := vdom.Comp(vdom.Func(func(ctx vdom.Ctx) *vdom.VNode {
		SubscribeChannel(ctx, ch, func(v vdom.Props) { seen = append(seen, v) }, equals)
		return nil
	}))

	_, err := render.New(render.Config{}).RenderToString(vdom.Background(), ProvideChannel(cs, probe))
	require.NoError(t, err)

	require.Len(t, seen, 1, "current value delivered synchronously at mount")
	assert.Equal(t, 1, seen[0]["n"])

	prop.Set(vdom.Props{"n": 1})
	assert.Len(t, seen, 1, "equal value suppressed")

	prop.Set(vdom.Props{"n": 2})
	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[1]["n"])
}
