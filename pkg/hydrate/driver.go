package hydrate

import (
	"log/slog"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/render"
	"github.com/isokit/isokit/pkg/vdom"
)

// UpdateSink receives live fragment replacements for mounted instances.
// The element id matches the server-rendered container, so replacement
// preserves element identity.
type UpdateSink interface {
	Replace(elementID, html string) error
}

// Options configures a hydration run.
type Options struct {
	// Renderer renders instance subtrees. Defaults to a plain renderer.
	Renderer *render.Renderer

	// Sink receives live updates. Nil disables live streaming; instances
	// still hydrate and their current markup stays queryable.
	Sink UpdateSink

	// Reporter receives instance-level errors. Defaults to logging.
	Reporter func(err error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Renderer == nil {
		o.Renderer = render.New(render.Config{})
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Reporter == nil {
		logger := o.Logger
		o.Reporter = func(err error) {
			logger.Warn("hydration instance error", "error", err)
		}
	}
	return o
}

// Hydrate scans doc for markers matching each descriptor's name and
// mounts every matching instance in hydration mode. Each instance
// renders synchronously from its recorded payload — the data function
// is called with the payload and must not hit the network — and then
// keeps streaming subsequent emissions through the sink.
//
// Instances are returned in document order. Failed instances are
// reported, not returned; one bad instance never aborts the rest.
func Hydrate(doc *Document, opts Options, descs ...*iso.Descriptor) []*Instance {
	opts = opts.withDefaults()

	var instances []*Instance
	for _, desc := range descs {
		for _, rec := range doc.Markers(desc.Name) {
			if inst := mount(desc, rec, opts); inst != nil {
				instances = append(instances, inst)
			}
		}
	}
	return instances
}

// mount hydrates a single recorded instance.
func mount(desc *iso.Descriptor, rec iso.MarkerRecord, opts Options) *Instance {
	env := &instanceEnv{record: rec, reporter: opts.Reporter}
	ctx := iso.WithHydrationEnv(vdom.Background(), env)

	node := desc.Element(rec.Props)
	html, err := opts.Renderer.RenderToString(ctx, node)
	if err != nil {
		opts.Reporter(err)
		return nil
	}
	if env.mounted == nil {
		// The wrapper reported its own failure; nothing mounted.
		return nil
	}

	inst := newInstance(env, opts, html)
	inst.listen()
	return inst
}
