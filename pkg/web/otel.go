package web

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/isokit/isokit/pkg/ssr"
)

const tracerName = "isokit"

// startRenderSpan opens a span around one render pass. The returned
// finish func records pass stats and the outcome.
func startRenderSpan(ctx context.Context, page string) (context.Context, func(stats ssr.Stats, err error)) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "isokit.render",
		trace.WithAttributes(attribute.String("isokit.page", page)),
	)

	finish := func(stats ssr.Stats, err error) {
		span.SetAttributes(
			attribute.Int("isokit.instances", stats.Instances),
			attribute.Int("isokit.deferred", stats.Deferred),
			attribute.Int("isokit.timeouts", stats.Timeouts),
			attribute.Int("isokit.dedup_hits", stats.DedupHits),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
	return ctx, finish
}
