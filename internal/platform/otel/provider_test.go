package otel_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/platform/config"
	platformotel "github.com/SscSPs/procureflow/internal/platform/otel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func resetGlobals(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})
}

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	resetGlobals(t)
	otel.SetMeterProvider(metricnoop.NewMeterProvider())

	shutdown, err := platformotel.Setup(context.Background(), config.TelemetryConfig{Enabled: true, ServiceName: "test-service"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, isSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.False(t, isSDK)
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	resetGlobals(t)

	shutdown, err := platformotel.Setup(context.Background(), config.TelemetryConfig{
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "test-service",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx), "noop shutdown ignores a cancelled context")
}

func TestSetup_InstallsSDKProvidersAndExports(t *testing.T) {
	resetGlobals(t)

	var traces, metrics atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/traces":
			traces.Add(1)
		case "/v1/metrics":
			metrics.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	shutdown, err := platformotel.Setup(context.Background(), config.TelemetryConfig{
		Enabled:        true,
		Endpoint:       collector.URL,
		ServiceName:    "test-service",
		ExportInterval: time.Hour,
	})
	require.NoError(t, err)

	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "global tracer provider is %T", otel.GetTracerProvider())
	_, ok = otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	require.True(t, ok, "global meter provider is %T", otel.GetMeterProvider())

	_, span := tp.Tracer("test").Start(context.Background(), "work", trace.WithSpanKind(trace.SpanKindInternal))
	span.End()
	counter, err := otel.Meter("test").Int64Counter("work.done")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
	assert.Positive(t, traces.Load(), "spans flushed on shutdown")
	assert.Positive(t, metrics.Load(), "metrics flushed on shutdown")
}
