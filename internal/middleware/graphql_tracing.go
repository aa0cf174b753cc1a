package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"graphql-eager/internal/gqlrequest"
	"graphql-eager/internal/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const graphqlTracerName = "graphql-eager/graphql"

// GraphQLTracingMiddleware wraps execution in a graphql.execute span. Relation
// and SQL spans started by the loaders nest under it, and the request logger
// gains the span's trace and span IDs.
func GraphQLTracingMiddleware() func(http.Handler) http.Handler {
	tracer := otel.Tracer(graphqlTracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := analysisFor(r)
			if strings.TrimSpace(analysis.Envelope.Query) == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracer.Start(r.Context(), "graphql.execute", trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithFields(
					slog.String("trace_id", sc.TraceID().String()),
					slog.String("span_id", sc.SpanID().String()),
				))
			}
			if span.IsRecording() {
				span.SetAttributes(graphqlSpanAttributes(analysis)...)
				recordAnalysisErrors(span, analysis)
			}

			rec := newResponseRecorder(w, false)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
			if rec.status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

// recordAnalysisErrors adds one span event per analysis failure. The
// handler still runs and reports the same failure to the client.
func recordAnalysisErrors(span trace.Span, analysis *gqlrequest.Analysis) {
	for _, failure := range []struct {
		stage string
		err   error
	}{
		{"decode", analysis.DecodeError},
		{"parse", analysis.ParseError},
		{"selection", analysis.SelectionError},
		{"trail", analysis.TrailError},
	} {
		if failure.err == nil {
			continue
		}
		span.RecordError(failure.err, trace.WithAttributes(attribute.String("graphql.analysis.stage", failure.stage)))
	}
}
