package hydrate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/ssr"
	"github.com/isokit/isokit/pkg/vdom"
)

// recordingSink captures live fragment replacements.
type recordingSink struct {
	mu       sync.Mutex
	replaces []string
	htmls    []string
}

func (s *recordingSink) Replace(elementID, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces = append(s.replaces, elementID)
	s.htmls = append(s.htmls, html)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replaces)
}

// newRoundTripDescriptor counts network fetches: any GetData call
// without a hydration payload is a fetch, replays from the payload are
// not.
func newRoundTripDescriptor(networkFetches *atomic.Int64) *iso.Descriptor {
	return iso.NewDescriptor(iso.Descriptor{
		Name: "profile",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.P(nil, vdom.Textf("hello %v", props["display_name"]))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if hydration != nil {
				return reactive.Once(iso.Emission{
					State: vdom.Props{"display_name": hydration["display_name"]},
				})
			}
			networkFetches.Add(1)
			return reactive.Once(iso.Emission{
				State:     vdom.Props{"display_name": "Ada"},
				Hydration: map[string]any{"display_name": "Ada"},
			})
		},
	})
}

func serverRender(t *testing.T, roots ...*vdom.VNode) string {
	t.Helper()
	html, err := ssr.RenderManyToOutput(context.Background(), roots)
	require.NoError(t, err)
	return html
}

func TestHydrateRoundTripWithoutRefetch(t *testing.T) {
	var fetches atomic.Int64
	desc := newRoundTripDescriptor(&fetches)

	output := serverRender(t, desc.Element(vdom.Props{"user": "ada"}))
	require.Equal(t, int64(1), fetches.Load())

	doc, err := ParseDocument(output)
	require.NoError(t, err)

	instances := Hydrate(doc, Options{}, desc)
	require.Len(t, instances, 1)

	assert.Equal(t, int64(1), fetches.Load(),
		"hydration must replay the payload, not fetch")
	assert.Contains(t, instances[0].CurrentHTML(), "hello Ada")
	assert.Equal(t, "profile", instances[0].Name())
	assert.NotEmpty(t, instances[0].ElementID())
}

func TestHydrateElementIDMatchesServer(t *testing.T) {
	var fetches atomic.Int64
	desc := newRoundTripDescriptor(&fetches)
	props := vdom.Props{"user": "ada"}

	output := serverRender(t, desc.Element(props))
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	instances := Hydrate(doc, Options{}, desc)
	require.Len(t, instances, 1)

	// Replacement targets the server-rendered container.
	assert.Contains(t, output, `id="`+instances[0].ElementID()+`"`)
}

func TestHydrateMismatchedPropsReported(t *testing.T) {
	var fetches atomic.Int64
	desc := newRoundTripDescriptor(&fetches)

	output := serverRender(t, desc.Element(vdom.Props{"user": "ada"}))
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	// Hydrating with different props derives a different key, so the
	// record must not match.
	var reported []error
	mismatched := desc.Element(vdom.Props{"user": "grace"})
	env := &instanceEnv{record: doc.Markers("profile")[0], reporter: func(err error) {
		reported = append(reported, err)
	}}
	ctx := iso.WithHydrationEnv(vdom.Background(), env)
	_, err = Options{}.withDefaults().Renderer.RenderToString(ctx, mismatched)
	require.NoError(t, err)

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], isoerr.ErrNoHydrationState)
}

func TestHydrateAsyncDataFnReported(t *testing.T) {
	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "async",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.P(nil, vdom.Text("x"))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if hydration != nil {
				// Contract violation: never settles synchronously.
				return reactive.NewBus[iso.Emission]()
			}
			return reactive.Once(iso.Emission{
				State:     vdom.Props{},
				Hydration: map[string]any{},
			})
		},
	})

	output := serverRender(t, desc.Element(nil))
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	var reported []error
	instances := Hydrate(doc, Options{
		Reporter: func(err error) { reported = append(reported, err) },
	}, desc)

	assert.Empty(t, instances, "violating instance is not mounted")
	require.NotEmpty(t, reported)
	assert.ErrorIs(t, reported[0], isoerr.ErrAsyncHydration)
}

func TestLiveEmissionPushesReplacement(t *testing.T) {
	prop := reactive.PropertyOf(iso.Emission{
		State: vdom.Props{"n": 1},
	})

	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "counter",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.Span(nil, vdom.Textf("n=%v", props["n"]))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if hydration != nil {
				return prop
			}
			return reactive.Once(iso.Emission{
				State:     vdom.Props{"n": 1},
				Hydration: map[string]any{"n": 1},
			})
		},
	})

	output := serverRender(t, desc.Element(nil))
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	sink := &recordingSink{}
	instances := Hydrate(doc, Options{Sink: sink}, desc)
	require.Len(t, instances, 1)
	defer instances[0].Close()

	assert.Equal(t, 0, sink.count(),
		"the synchronous replay must not trigger a push")

	prop.Set(iso.Emission{State: vdom.Props{"n": 2}})

	require.Equal(t, 1, sink.count())
	assert.Equal(t, instances[0].ElementID(), sink.replaces[0])
	assert.Contains(t, sink.htmls[0], "n=2")
	assert.Contains(t, instances[0].CurrentHTML(), "n=2")
}

func TestLiveEmissionUnchangedHTMLNotPushed(t *testing.T) {
	prop := reactive.PropertyOf(iso.Emission{State: vdom.Props{"n": 1}})

	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "steady",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.Span(nil, vdom.Textf("n=%v", props["n"]))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if hydration != nil {
				return prop
			}
			return reactive.Once(iso.Emission{
				State:     vdom.Props{"n": 1},
				Hydration: map[string]any{"n": 1},
			})
		},
	})

	output := serverRender(t, desc.Element(nil))
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	sink := &recordingSink{}
	instances := Hydrate(doc, Options{Sink: sink}, desc)
	require.Len(t, instances, 1)
	defer instances[0].Close()

	prop.Set(iso.Emission{State: vdom.Props{"n": 1}})
	assert.Equal(t, 0, sink.count(), "identical markup is not re-pushed")
}

func TestCloseDetachesInstance(t *testing.T) {
	prop := reactive.PropertyOf(iso.Emission{State: vdom.Props{"n": 1}})

	desc := iso.NewDescriptor(iso.Descriptor{
		Name: "closing",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.Span(nil, vdom.Textf("n=%v", props["n"]))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			if hydration != nil {
				return prop
			}
			return reactive.Once(iso.Emission{
				State:     vdom.Props{"n": 1},
				Hydration: map[string]any{"n": 1},
			})
		},
	})

	output := serverRender(t, desc.Element(nil))
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	sink := &recordingSink{}
	instances := Hydrate(doc, Options{Sink: sink}, desc)
	require.Len(t, instances, 1)

	instances[0].Close()
	prop.Set(iso.Emission{State: vdom.Props{"n": 9}})
	assert.Equal(t, 0, sink.count())
}

func TestHydrateMultipleInstances(t *testing.T) {
	var fetches atomic.Int64
	desc := newRoundTripDescriptor(&fetches)

	output := serverRender(t,
		desc.Element(vdom.Props{"user": "ada"}),
		desc.Element(vdom.Props{"user": "grace"}),
	)
	doc, err := ParseDocument(output)
	require.NoError(t, err)

	instances := Hydrate(doc, Options{}, desc)
	assert.Len(t, instances, 2)
}
