package observability

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestInitMeterProviderAndMetrics(t *testing.T) {
	mp, err := InitMeterProvider(Config{ServiceName: "test-service", ServiceVersion: "1.0.0", Environment: "test"})
	require.NoError(t, err)
	require.NotNil(t, mp.provider)
	require.NotNil(t, mp.exporter)
	t.Cleanup(func() { assert.NoError(t, mp.Shutdown(context.Background(), discardLogger())) })

	metrics, err := InitMetrics(discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, metrics.requestDuration)
	assert.NotNil(t, metrics.relationLoads)
	assert.NotNil(t, metrics.sqlQueriesSaved)

	ctx := ContextWithGraphQLMetrics(context.Background(), metrics)
	assert.Same(t, metrics, GraphQLMetricsFromContext(ctx))
	assert.Nil(t, GraphQLMetricsFromContext(context.Background()))
}

func TestBuildTLSConfig(t *testing.T) {
	dir := t.TempDir()

	_, err := buildTLSConfig(ExporterConfig{TLSCertFile: filepath.Join(dir, "missing.pem")})
	assert.ErrorContains(t, err, "failed to read OTLP TLS CA file")

	junk := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not-a-cert"), 0o600))
	_, err = buildTLSConfig(ExporterConfig{TLSCertFile: junk})
	assert.ErrorContains(t, err, "failed to parse OTLP TLS CA file")

	_, err = buildTLSConfig(ExporterConfig{TLSClientCertFile: junk})
	assert.ErrorContains(t, err, "OTLP TLS client cert and key must both be set")

	cfg, err := buildTLSConfig(ExporterConfig{})
	require.NoError(t, err)
	assert.Nil(t, cfg.RootCAs)
}

func TestExporterSettings(t *testing.T) {
	s, err := newExporterSettings(ExporterConfig{
		Endpoint:         "https://collector:4318/v1/traces",
		Protocol:         "http/protobuf",
		Insecure:         true,
		Headers:          map[string]string{"a": "b"},
		Timeout:          time.Second,
		Compression:      "gzip",
		RetryEnabled:     true,
		RetryMaxAttempts: 3,
	})
	require.NoError(t, err)
	assert.True(t, s.http)
	assert.True(t, s.endpointURL)
	assert.Nil(t, s.tls)
	assert.Len(t, s.traceHTTPOptions(), 6)
	assert.Len(t, s.logHTTPOptions(), 6)

	s, err = newExporterSettings(ExporterConfig{Endpoint: "collector:4317"})
	require.NoError(t, err)
	assert.False(t, s.http)
	assert.NotNil(t, s.tls)
	assert.Len(t, s.traceGRPCOptions(), 2)
	assert.Len(t, s.logGRPCOptions(), 2)

	_, err = newExporterSettings(ExporterConfig{Protocol: "udp"})
	assert.ErrorContains(t, err, "unsupported OTLP protocol")
}

func TestTraceSamplerForRatio(t *testing.T) {
	decide := func(s sdktrace.Sampler, parent context.Context, id byte) sdktrace.SamplingDecision {
		return s.ShouldSample(sdktrace.SamplingParameters{
			ParentContext: parent,
			TraceID:       trace.TraceID{id},
			Name:          "test",
		}).Decision
	}

	assert.Equal(t, sdktrace.Drop, decide(traceSamplerForRatio(0), context.Background(), 1))
	assert.Equal(t, sdktrace.RecordAndSample, decide(traceSamplerForRatio(1), context.Background(), 2))

	sampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{3},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
	assert.Equal(t, sdktrace.RecordAndSample, decide(traceSamplerForRatio(0.5), sampled, 4))

	unsampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{5},
		SpanID:  trace.SpanID{2},
		Remote:  true,
	}))
	assert.Equal(t, sdktrace.Drop, decide(traceSamplerForRatio(0.5), unsampled, 6))
}
