package eager

import (
	"context"

	"graphql-eager/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "graphql-eager/eager"

func startRelationSpan(ctx context.Context, rel observability.RelationAttrs, parents int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "eager.relation", trace.WithAttributes(
		attribute.String("eager.parent_type", rel.Type),
		attribute.String("eager.field", rel.Field),
		attribute.String("eager.kind", rel.Kind),
		attribute.Int("eager.parent_count", parents),
	))
}

func finishRelationSpan(span trace.Span, err error, outcome string, children int) {
	if span == nil {
		return
	}
	if outcome == "" {
		if err != nil {
			outcome = "error"
		} else {
			outcome = "success"
		}
	}
	span.SetAttributes(
		attribute.String("eager.outcome", outcome),
		attribute.Int("eager.child_count", children),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
