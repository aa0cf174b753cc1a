package serverapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"graphql-eager/internal/config"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracingConfig() *config.Config {
	return &config.Config{Observability: config.ObservabilityConfig{TracingEnabled: true}}
}

func TestWrapHTTPHandler_RootSpanNames(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()), sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})

	handler := wrapHTTPHandler(tracingConfig(), testLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	requests := []struct {
		method, path, span string
	}{
		{http.MethodGet, "/health", "GET /health"},
		{http.MethodPost, "/graphql", "POST /graphql"},
		{http.MethodGet, "/companies/42", "GET /*"},
	}
	for _, tc := range requests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s %s: status = %d, want %d", tc.method, tc.path, rec.Code, http.StatusNoContent)
		}
	}

	ended := map[string]bool{}
	for _, span := range recorder.Ended() {
		ended[span.Name()] = true
	}
	for _, tc := range requests {
		if !ended[tc.span] {
			t.Errorf("missing span %q, got %v", tc.span, ended)
		}
	}
}

func TestWrapHTTPHandler_DisabledPassesThrough(t *testing.T) {
	inner := http.NotFoundHandler()
	got := wrapHTTPHandler(&config.Config{}, testLogger(), inner)
	rec := httptest.NewRecorder()
	got.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHTTPRootSpanName(t *testing.T) {
	tests := map[string]struct {
		req  *http.Request
		want string
	}{
		"nil request":    {nil, "HTTP /*"},
		"root":           {httptest.NewRequest(http.MethodGet, "/", nil), "GET /"},
		"metrics":        {httptest.NewRequest(http.MethodGet, "/metrics", nil), "GET /metrics"},
		"unknown path":   {httptest.NewRequest(http.MethodGet, "/admin/reload", nil), "GET /*"},
		"trailing slash": {httptest.NewRequest(http.MethodPost, "/graphql/", nil), "POST /*"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := httpRootSpanName(tc.req); got != tc.want {
				t.Fatalf("httpRootSpanName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeHTTPSpanRoute_Empty(t *testing.T) {
	if got := normalizeHTTPSpanRoute(""); got != "/*" {
		t.Fatalf("normalizeHTTPSpanRoute(\"\") = %q, want /*", got)
	}
}
