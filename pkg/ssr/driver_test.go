package ssr

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

// delayedEmission emits em once after d, simulating a fetch.
func delayedEmission(em iso.Emission, d time.Duration) reactive.Stream[iso.Emission] {
	bus := reactive.NewBus[iso.Emission]()
	time.AfterFunc(d, func() {
		bus.Push(em)
		bus.End()
	})
	return bus
}

// newTestDescriptor builds a descriptor rendering "<p>NAME:GREETING</p>"
// from emitted state, optionally delaying the emission.
func newTestDescriptor(name string, delay, timeout time.Duration, fetches *atomic.Int64) *iso.Descriptor {
	return iso.NewDescriptor(iso.Descriptor{
		Name: name,
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.P(nil, vdom.Textf("%s:%v", name, props["greeting"]))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if fetches != nil {
				fetches.Add(1)
			}
			em := iso.Emission{
				State:     vdom.Props{"greeting": "hi"},
				Hydration: map[string]any{"greeting": "hi"},
				Data:      map[string]any{"source": name},
			}
			if delay <= 0 {
				return reactive.Once(em)
			}
			return delayedEmission(em, delay)
		},
		Timeout: timeout,
	})
}

func TestImmediatePath(t *testing.T) {
	desc := newTestDescriptor("profile", 0, time.Second, nil)

	var stats Stats
	html, err := RenderToOutput(context.Background(), desc.Element(vdom.Props{"user": "ada"}),
		WithStats(&stats))
	require.NoError(t, err)

	assert.Contains(t, html, "profile:hi")
	assert.Contains(t, html, `type="application/x-isokit-state"`)
	assert.NotContains(t, html, "isokit:pending", "no unresolved placeholders")

	assert.Equal(t, 1, stats.Instances)
	assert.Equal(t, 0, stats.Deferred)
	assert.Equal(t, 0, stats.Timeouts)
}

func TestDeferredPathResolves(t *testing.T) {
	desc := newTestDescriptor("feed", 15*time.Millisecond, time.Second, nil)

	var stats Stats
	html, err := RenderToOutput(context.Background(), desc.Element(nil), WithStats(&stats))
	require.NoError(t, err)

	assert.Contains(t, html, "feed:hi")
	assert.NotContains(t, html, "isokit:pending")
	assert.Equal(t, 1, stats.Deferred)
	assert.Equal(t, 0, stats.Timeouts)
}

func TestDedupSharesOneFetch(t *testing.T) {
	var fetches atomic.Int64
	desc := newTestDescriptor("widget", 0, time.Second, &fetches)
	props := vdom.Props{"user": "ada"}

	root := vdom.Div(nil,
		desc.Element(props),
		desc.Element(props),
		desc.Element(props),
		desc.Element(props),
		desc.Element(props),
	)

	var stats Stats
	html, err := RenderToOutput(context.Background(), root, WithStats(&stats))
	require.NoError(t, err)

	assert.Equal(t, int64(1), fetches.Load(), "equal-key instances share one data stream")
	assert.Equal(t, 5, stats.Instances)
	assert.Equal(t, 4, stats.DedupHits)
	assert.Equal(t, 5, strings.Count(html, "widget:hi"), "every instance still renders")
}

func TestDistinctPropsFetchSeparately(t *testing.T) {
	var fetches atomic.Int64
	desc := newTestDescriptor("widget", 0, time.Second, &fetches)

	root := vdom.Div(nil,
		desc.Element(vdom.Props{"user": "ada"}),
		desc.Element(vdom.Props{"user": "grace"}),
	)

	_, err := RenderToOutput(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestOutputPreservesRenderOrder(t *testing.T) {
	// B is slowest; completion order is A, C, B but output order must
	// stay A, B, C.
	descA := newTestDescriptor("alpha", 10*time.Millisecond, time.Second, nil)
	descB := newTestDescriptor("beta", 50*time.Millisecond, time.Second, nil)
	descC := newTestDescriptor("gamma", 5*time.Millisecond, time.Second, nil)

	html, err := RenderManyToOutput(context.Background(), []*vdom.VNode{
		descA.Element(nil), descB.Element(nil), descC.Element(nil),
	})
	require.NoError(t, err)

	posA := strings.Index(html, "alpha:hi")
	posB := strings.Index(html, "beta:hi")
	posC := strings.Index(html, "gamma:hi")
	require.True(t, posA >= 0 && posB >= 0 && posC >= 0, "all instances rendered: %q", html)
	assert.Less(t, posA, posB)
	assert.Less(t, posB, posC)
}

func TestTimeoutReportedAndLateResultStillSpliced(t *testing.T) {
	desc := newTestDescriptor("feed", 60*time.Millisecond, 10*time.Millisecond, nil)

	var mu sync.Mutex
	var reported []error
	var stats Stats

	html, err := RenderToOutput(context.Background(), desc.Element(nil),
		WithStats(&stats),
		WithErrorReporter(func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.True(t, isoerr.IsTimeout(reported[0]))
	assert.Equal(t, 1, stats.Timeouts)

	// Full-page contract: the late success is rendered anyway.
	assert.Contains(t, html, "feed:hi")
	assert.NotContains(t, html, "isokit:pending")
}

func TestDataBeatsTimeout(t *testing.T) {
	desc := newTestDescriptor("feed", 5*time.Millisecond, 500*time.Millisecond, nil)

	var reported []error
	var stats Stats
	_, err := RenderToOutput(context.Background(), desc.Element(nil),
		WithStats(&stats),
		WithErrorReporter(func(err error) { reported = append(reported, err) }),
	)
	require.NoError(t, err)

	assert.Empty(t, reported)
	assert.Equal(t, 0, stats.Timeouts)
}

func TestOnDataFiresInRenderOrder(t *testing.T) {
	// alpha resolves after beta, but the callback order follows slot
	// (render) order.
	descA := newTestDescriptor("alpha", 40*time.Millisecond, time.Second, nil)
	descB := newTestDescriptor("beta", 5*time.Millisecond, time.Second, nil)

	var order []string
	_, err := RenderManyToOutput(context.Background(), []*vdom.VNode{
		descA.Element(nil), descB.Element(nil),
	}, WithOnData(func(name, elementID string, data map[string]any) {
		order = append(order, name)
		assert.NotEmpty(t, elementID)
		assert.Equal(t, name, data["source"])
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, order)
}

func TestMissingHydrationPayloadReported(t *testing.T) {
	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "broken",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.P(nil, vdom.Text("never"))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			return reactive.Once(iso.Emission{State: vdom.Props{"x": 1}})
		},
	})

	var reported []error
	html, err := RenderToOutput(context.Background(), desc.Element(nil),
		WithErrorReporter(func(err error) { reported = append(reported, err) }))
	require.NoError(t, err)

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], isoerr.ErrMissingHydration)
	assert.NotContains(t, html, "never", "violating instance renders nothing")
}

func TestInstanceErrorsFailPassWithoutReporter(t *testing.T) {
	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "broken",
		Component: func(props vdom.Props) *vdom.VNode {
			return nil
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			return reactive.FailWith[iso.Emission](assert.AnError)
		},
	})

	_, err := RenderToOutput(context.Background(), desc.Element(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, isoerr.ErrDataFetch)
}

func TestValidationFailureReported(t *testing.T) {
	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "strict",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.P(nil, vdom.Text("ok"))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			return reactive.Once(iso.Emission{Hydration: map[string]any{}})
		},
		Validate: func(props vdom.Props) error {
			if props["user"] == nil {
				return assert.AnError
			}
			return nil
		},
	})

	var reported []error
	_, err := RenderToOutput(context.Background(), desc.Element(nil),
		WithErrorReporter(func(err error) { reported = append(reported, err) }))
	require.NoError(t, err)

	require.Len(t, reported, 1)
	assert.True(t, isoerr.IsConfig(reported[0]))
}

func TestDedupAcrossRoots(t *testing.T) {
	var fetches atomic.Int64
	desc := newTestDescriptor("shared", 0, time.Second, &fetches)
	props := vdom.Props{"user": "ada"}

	_, err := RenderManyToOutput(context.Background(), []*vdom.VNode{
		desc.Element(props), desc.Element(props),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load(), "registry spans all roots of one pass")
}

// newParentDescriptor builds a descriptor whose component renders a
// further isomorphic instance inside its own subtree.
func newParentDescriptor(name string, delay time.Duration, child *iso.Descriptor) *iso.Descriptor {
	return iso.NewDescriptor(iso.Descriptor{
		Name: name,
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.Div(nil,
				vdom.Textf("%s:%v", name, props["greeting"]),
				child.Element(vdom.Props{"user": "ada"}),
			)
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			em := iso.Emission{
				State:     vdom.Props{"greeting": "hi"},
				Hydration: map[string]any{"greeting": "hi"},
			}
			if delay <= 0 {
				return reactive.Once(em)
			}
			return delayedEmission(em, delay)
		},
		Timeout: time.Second,
	})
}

func TestNestedInstanceDeferredChildOfImmediateParent(t *testing.T) {
	child := newTestDescriptor("inner", 10*time.Millisecond, time.Second, nil)
	parent := newParentDescriptor("outer", 0, child)

	var stats Stats
	html, err := RenderToOutput(context.Background(), parent.Element(nil), WithStats(&stats))
	require.NoError(t, err)

	assert.NotContains(t, html, "isokit:pending")
	assert.Contains(t, html, "outer:hi")
	assert.Contains(t, html, "inner:hi")
	assert.Contains(t, html, `data-isokit="inner"`, "child hydration record emitted")
	assert.Equal(t, 2, stats.Instances)
	assert.Equal(t, 1, stats.Deferred)
}

func TestNestedInstanceDeferredChildOfDeferredParent(t *testing.T) {
	// The child only registers once the parent's continuation runs, so
	// resolution has to keep draining past the first batch.
	child := newTestDescriptor("inner", 10*time.Millisecond, time.Second, nil)
	parent := newParentDescriptor("outer", 10*time.Millisecond, child)

	var stats Stats
	html, err := RenderToOutput(context.Background(), parent.Element(nil), WithStats(&stats))
	require.NoError(t, err)

	assert.NotContains(t, html, "isokit:pending")
	assert.Contains(t, html, "outer:hi")
	assert.Contains(t, html, "inner:hi")
	assert.Contains(t, html, `data-isokit="inner"`)
	assert.Equal(t, 2, stats.Instances)
	assert.Equal(t, 2, stats.Deferred)
	assert.Equal(t, 0, stats.Timeouts)
}

func TestFreshRegistryPerPass(t *testing.T) {
	var fetches atomic.Int64
	desc := newTestDescriptor("again", 0, time.Second, &fetches)
	props := vdom.Props{"user": "ada"}

	for i := 0; i < 2; i++ {
		_, err := RenderToOutput(context.Background(), desc.Element(props))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), fetches.Load(), "streams never survive across passes")
}
