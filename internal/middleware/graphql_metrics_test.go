package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"graphql-eager/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestGraphQLMetricsMiddleware_RequestCounts(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		response      string
		operationType string
		hasErrors     bool
		errorCount    int64
	}{
		{
			name:          "query",
			body:          `{"query":"query Directory { countries { name } }"}`,
			response:      `{"data":{"countries":[]}}`,
			operationType: "query",
		},
		{
			name:          "query with errors in a 200 response",
			body:          `{"query":"{ users { manager { name } } }"}`,
			response:      `{"data":null,"errors":[{"message":"association was never loaded"}]}`,
			operationType: "query",
			hasErrors:     true,
			errorCount:    1,
		},
		{
			name:          "mutation",
			body:          `{"query":"mutation Rename { renameUser(id: 1) { id } }","operationName":"Rename"}`,
			response:      `{"data":{"renameUser":{"id":"1"}}}`,
			operationType: "mutation",
		},
		{
			name:          "subscription",
			body:          `{"query":"subscription { userAdded { id } }"}`,
			response:      `{"data":{}}`,
			operationType: "subscription",
		},
		{
			name:          "unparseable body",
			body:          `{"query":`,
			response:      `{"data":{}}`,
			operationType: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, reader := setupGraphQLMetricsMiddleware(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			rm := collectMetrics(t, reader)
			requests := sumCounter(rm, "graphql.requests.total",
				attribute.String("operation_type", tt.operationType),
				attribute.Bool("has_errors", tt.hasErrors))
			if requests != 1 {
				t.Fatalf("graphql.requests.total{%s,has_errors=%v} = %d, want 1", tt.operationType, tt.hasErrors, requests)
			}
			if got := sumCounter(rm, "graphql.errors.total", attribute.String("operation_type", tt.operationType)); got != tt.errorCount {
				t.Fatalf("graphql.errors.total = %d, want %d", got, tt.errorCount)
			}
		})
	}
}

func setupGraphQLMetricsMiddleware(t *testing.T, next http.Handler) (http.Handler, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetMeterProvider(previous)
	})

	metrics, err := observability.InitGraphQLMetrics()
	if err != nil {
		t.Fatalf("InitGraphQLMetrics: %v", err)
	}
	return GraphQLMetricsMiddleware(metrics)(next), reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	return rm
}

// sumCounter adds the data points of an int64 counter whose attributes
// include every one of want.
func sumCounter(rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if m.Name != name || !ok {
				continue
			}
		points:
			for _, point := range sum.DataPoints {
				for _, kv := range want {
					if got, ok := point.Attributes.Value(kv.Key); !ok || got != kv.Value {
						continue points
					}
				}
				total += point.Value
			}
		}
	}
	return total
}

func TestGraphQLMetricsMiddleware_RecordsQueryDepthAndScopesMetrics(t *testing.T) {
	var scoped bool
	handler, reader := setupGraphQLMetricsMiddleware(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = observability.GraphQLMetricsFromContext(r.Context()) != nil
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ countries { users { name } } }"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !scoped {
		t.Fatalf("expected metrics in request context")
	}

	rm := collectMetrics(t, reader)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "graphql.query.depth" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[int64])
			if !ok || len(hist.DataPoints) != 1 {
				t.Fatalf("unexpected depth data %T", m.Data)
			}
			if got := hist.DataPoints[0].Sum; got != 3 {
				t.Fatalf("recorded depth = %d, want 3", got)
			}
			return
		}
	}
	t.Fatalf("graphql.query.depth not recorded")
}

func TestGraphQLMetricsMiddleware_SkipsGET(t *testing.T) {
	handler, reader := setupGraphQLMetricsMiddleware(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/graphql", nil))

	rm := collectMetrics(t, reader)
	if got := sumCounter(rm, "graphql.requests.total"); got != 0 {
		t.Fatalf("graphql.requests.total = %d, want 0 for GET", got)
	}
}

func TestResponseHasGraphQLErrors(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: `{"data":{"users":[]}}`, want: false},
		{body: `{"data":null,"errors":[{"message":"boom"}]}`, want: true},
		{body: `{"errors":[]}`, want: false},
		{body: `{"errors":null}`, want: false},
		{body: `not json`, want: false},
		{body: ``, want: false},
	}
	for _, tt := range tests {
		if got := responseHasGraphQLErrors([]byte(tt.body)); got != tt.want {
			t.Errorf("responseHasGraphQLErrors(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}
