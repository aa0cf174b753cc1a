package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for every instrument in this package.
const MeterName = "graphql-eager"

// GraphQLMetrics holds request-level and eager-loading instruments.
type GraphQLMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	queryDepth      metric.Int64Histogram

	relationDuration    metric.Float64Histogram
	relationLoads       metric.Int64Counter
	relationErrors      metric.Int64Counter
	relationSkipped     metric.Int64Counter
	relationParentCount metric.Int64Histogram
	relationChildCount  metric.Int64Histogram

	sqlQueries      metric.Int64Counter
	sqlQueriesSaved metric.Int64Counter
	sqlResultRows   metric.Int64Histogram
}

// RelationAttrs identifies one relation in metric attributes.
type RelationAttrs struct {
	Type  string
	Field string
	Kind  string
}

func (r RelationAttrs) options(extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("parent_type", r.Type),
		attribute.String("field", r.Field),
		attribute.String("kind", r.Kind),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

// InitGraphQLMetrics initializes the instruments on the global meter provider.
func InitGraphQLMetrics() (*GraphQLMetrics, error) {
	return NewGraphQLMetrics(otel.Meter(MeterName))
}

// NewGraphQLMetrics creates every instrument on the given meter.
func NewGraphQLMetrics(meter metric.Meter) (*GraphQLMetrics, error) {
	m := &GraphQLMetrics{}
	var err error

	if m.requestDuration, err = meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if m.requestCounter, err = meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.errorCounter, err = meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("Total number of GraphQL requests that returned errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if m.activeRequests, err = meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("Number of active GraphQL requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}
	if m.queryDepth, err = meter.Int64Histogram(
		"graphql.query.depth",
		metric.WithDescription("Selection depth of GraphQL operations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create query depth histogram: %w", err)
	}

	if m.relationDuration, err = meter.Float64Histogram(
		"eager.relation.duration",
		metric.WithDescription("Time spent resolving one relation for a batch, including its subtree"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create relation duration histogram: %w", err)
	}
	if m.relationLoads, err = meter.Int64Counter(
		"eager.relation.loads",
		metric.WithDescription("Number of batched relation loads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create relation loads counter: %w", err)
	}
	if m.relationErrors, err = meter.Int64Counter(
		"eager.relation.errors",
		metric.WithDescription("Number of relation loads that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create relation errors counter: %w", err)
	}
	if m.relationSkipped, err = meter.Int64Counter(
		"eager.relation.skipped",
		metric.WithDescription("Number of relation loads skipped without calling the loader"),
	); err != nil {
		return nil, fmt.Errorf("failed to create relation skipped counter: %w", err)
	}
	if m.relationParentCount, err = meter.Int64Histogram(
		"eager.relation.parent_count",
		metric.WithDescription("Number of parent nodes in a relation batch"),
	); err != nil {
		return nil, fmt.Errorf("failed to create relation parent count histogram: %w", err)
	}
	if m.relationChildCount, err = meter.Int64Histogram(
		"eager.relation.child_count",
		metric.WithDescription("Number of child nodes materialized for a relation batch"),
	); err != nil {
		return nil, fmt.Errorf("failed to create relation child count histogram: %w", err)
	}

	if m.sqlQueries, err = meter.Int64Counter(
		"sqlload.queries",
		metric.WithDescription("Number of batch SQL queries issued by loaders"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sql queries counter: %w", err)
	}
	if m.sqlQueriesSaved, err = meter.Int64Counter(
		"sqlload.queries_saved",
		metric.WithDescription("Number of per-key queries avoided by batching"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sql queries saved counter: %w", err)
	}
	if m.sqlResultRows, err = meter.Int64Histogram(
		"sqlload.result_rows",
		metric.WithDescription("Number of rows returned by a batch SQL query"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sql result rows histogram: %w", err)
	}

	return m, nil
}

// RecordRequest records a GraphQL request with its duration and outcome
func (m *GraphQLMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	attrs := []attribute.KeyValue{
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", hasErrors),
	}
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation_type", operationType),
		))
	}
}

// RecordQueryDepth records the depth of a GraphQL operation
func (m *GraphQLMetrics) RecordQueryDepth(ctx context.Context, depth int64, operationType string) {
	m.queryDepth.Record(ctx, depth, metric.WithAttributes(
		attribute.String("operation_type", operationType),
	))
}

// IncrementActiveRequests increments the active requests counter
func (m *GraphQLMetrics) IncrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests decrements the active requests counter
func (m *GraphQLMetrics) DecrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, -1)
}

// RecordRelationLoad records one completed relation batch.
func (m *GraphQLMetrics) RecordRelationLoad(ctx context.Context, rel RelationAttrs, duration time.Duration, parents, children int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.relationErrors.Add(ctx, 1, rel.options())
	}
	m.relationLoads.Add(ctx, 1, rel.options(attribute.String("outcome", outcome)))
	m.relationDuration.Record(ctx, float64(duration.Microseconds())/1000, rel.options(attribute.String("outcome", outcome)))
	m.relationParentCount.Record(ctx, int64(parents), rel.options())
	if err == nil {
		m.relationChildCount.Record(ctx, int64(children), rel.options())
	}
}

// RecordRelationSkipped records a relation whose loader was never called.
func (m *GraphQLMetrics) RecordRelationSkipped(ctx context.Context, rel RelationAttrs, reason string) {
	m.relationSkipped.Add(ctx, 1, rel.options(attribute.String("reason", reason)))
}

// RecordSQLBatch records the queries issued for one loader call.
func (m *GraphQLMetrics) RecordSQLBatch(ctx context.Context, table string, keyCount, queryCount int) {
	attrs := metric.WithAttributes(attribute.String("table", table))
	m.sqlQueries.Add(ctx, int64(queryCount), attrs)
	if saved := int64(keyCount - queryCount); saved > 0 {
		m.sqlQueriesSaved.Add(ctx, saved, attrs)
	}
}

// RecordSQLResultRows records the row count of one batch query.
func (m *GraphQLMetrics) RecordSQLResultRows(ctx context.Context, table string, rows int) {
	m.sqlResultRows.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("table", table)))
}

// InitMetrics initializes all custom metrics and returns the GraphQLMetrics instance
func InitMetrics(logger *slog.Logger) (*GraphQLMetrics, error) {
	metrics, err := InitGraphQLMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GraphQL metrics: %w", err)
	}

	logger.Info("custom GraphQL metrics initialized")
	return metrics, nil
}

type graphQLMetricsContextKey struct{}

// ContextWithGraphQLMetrics stores GraphQL metrics in the provided context.
func ContextWithGraphQLMetrics(ctx context.Context, metrics *GraphQLMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, graphQLMetricsContextKey{}, metrics)
}

// GraphQLMetricsFromContext retrieves GraphQL metrics from the context.
func GraphQLMetricsFromContext(ctx context.Context) *GraphQLMetrics {
	if ctx == nil {
		return nil
	}
	metrics, _ := ctx.Value(graphQLMetricsContextKey{}).(*GraphQLMetrics)
	return metrics
}
