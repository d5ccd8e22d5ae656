// Package ssr drives server-side rendering of isomorphic component
// trees: one render pass per call, a fresh stream registry per pass,
// deferred-instance resolution out of band, and output re-serialized by
// position regardless of completion order.
package ssr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/isoerr"
	"github.com/isokit/isokit/pkg/render"
	"github.com/isokit/isokit/pkg/vdom"
)

// DataFunc receives one instance's out-of-band accumulation payload.
// Invoked once per instance carrying data, in render (not resolution)
// order.
type DataFunc func(name, elementID string, data map[string]any)

// Reporter receives instance-level errors. An instance error aborts only
// that instance's render, never the whole pass.
//
// Known surprising behavior, by contract: when an instance times out and
// its data stream later succeeds, the reporter sees the timeout AND the
// late result is still spliced into the output. Callers that must not
// double-count should key on the error's instance annotation.
type Reporter func(err error)

// Stats describes one completed render pass.
type Stats struct {
	Instances int
	Deferred  int
	Timeouts  int
	DedupHits int
	Duration  time.Duration
}

type config struct {
	renderer *render.Renderer
	onData   DataFunc
	reporter Reporter
	logger   *slog.Logger
	stats    *Stats
}

// Option configures a render pass.
type Option func(*config)

// WithRenderer substitutes an alternate renderer for the pass.
func WithRenderer(r *render.Renderer) Option {
	return func(c *config) { c.renderer = r }
}

// WithOnData registers the accumulation callback.
func WithOnData(fn DataFunc) Option {
	return func(c *config) { c.onData = fn }
}

// WithErrorReporter registers the instance-error funnel. Without a
// reporter, instance errors accumulate and fail the pass.
func WithErrorReporter(fn Reporter) Option {
	return func(c *config) { c.reporter = fn }
}

// WithLogger sets the pass logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithStats records pass statistics into stats.
func WithStats(stats *Stats) Option {
	return func(c *config) { c.stats = stats }
}

func newConfig(opts []Option) config {
	cfg := config{
		renderer: render.New(render.Config{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// RenderToOutput runs one full render pass over a single root element
// and returns the final markup, with every deferred instance resolved
// and spliced at its position.
func RenderToOutput(ctx context.Context, root *vdom.VNode, opts ...Option) (string, error) {
	return RenderManyToOutput(ctx, []*vdom.VNode{root}, opts...)
}

// RenderManyToOutput renders an ordered collection of root elements in
// one pass. Output preserves call order even when deferred resolutions
// complete out of order internally. All roots share one stream registry,
// so identical instances across roots still fetch once.
func RenderManyToOutput(ctx context.Context, roots []*vdom.VNode, opts ...Option) (string, error) {
	cfg := newConfig(opts)
	p := newPass(cfg)
	start := time.Now()

	// Synchronous walks, in call order. Deferred instances leave
	// placeholder tokens behind and queue continuations on the pass.
	walked := make([]string, len(roots))
	for i, root := range roots {
		wctx := iso.WithServerEnv(vdom.Background(), p)
		html, err := cfg.renderer.RenderToString(wctx, root)
		if err != nil {
			return "", err
		}
		walked[i] = html
	}

	// Out-of-band resolution. Completion order is not render order;
	// splicing by token re-serializes output by position. Continuations
	// can defer further instances from their own subtrees, whose tokens
	// land in walked via the parent's splice, so the queue is drained to
	// a fixed point with a re-scan per batch.
	for {
		batch := p.takePending()
		if len(batch) == 0 {
			break
		}
		for _, d := range batch {
			frag := p.resolve(ctx, d)
			token := iso.Placeholder(d.Token)
			for i := range walked {
				if strings.Contains(walked[i], token) {
					walked[i] = strings.Replace(walked[i], token, frag, 1)
					break
				}
			}
		}
	}

	p.emitData(cfg.onData)

	if cfg.stats != nil {
		*cfg.stats = Stats{
			Instances: len(p.slots),
			Deferred:  p.deferredTotal,
			Timeouts:  p.timeouts,
			DedupHits: int(p.registry.DedupHits()),
			Duration:  time.Since(start),
		}
	}

	cfg.logger.Debug("render pass complete",
		"instances", len(p.slots),
		"deferred", p.deferredTotal,
		"timeouts", p.timeouts,
		"duration", time.Since(start),
	)

	if cfg.reporter == nil && len(p.errs) > 0 {
		return "", errors.Join(p.errs...)
	}
	return strings.Join(walked, ""), nil
}

// resolve waits out one deferred instance and returns its fragment, or
// an empty string when the instance failed (already reported).
func (p *pass) resolve(ctx context.Context, d iso.DeferredRender) string {
	em, err := d.Race.Await(ctx)
	if err == nil {
		return p.fragment(d, em)
	}
	if ctx.Err() != nil {
		p.Report(isoerr.DataFetch(d.Instance, ctx.Err()))
		return ""
	}

	p.Report(err)
	if !isoerr.IsTimeout(err) {
		return ""
	}
	p.timeouts++

	// The timeout was reported, but a late first emission is still
	// rendered and included for full-page correctness.
	em, dataErr := d.Data.Await(ctx)
	if dataErr != nil {
		if ctx.Err() == nil {
			p.Report(isoerr.DataFetch(d.Instance, dataErr))
		}
		return ""
	}
	return p.fragment(d, em)
}

func (p *pass) fragment(d iso.DeferredRender, em iso.Emission) string {
	frag, err := d.Continue(em)
	if err != nil {
		p.Report(isoerr.DataFetch(d.Instance, err))
		return ""
	}
	return frag
}
