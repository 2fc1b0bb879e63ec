package infrastructure

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasweeper/internal/config"
)

func TestOTelInitialization(t *testing.T) {
	logger := NewLoggerWithWriter(&bytes.Buffer{}, "info")

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "test",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		EnableMetrics:  true,
		SampleRatio:    1,
	}, logger)
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateSweeperMetrics(providers.Meter)
	require.NoError(t, err)
	require.NoError(t, ObserveActiveDatasets(providers.Meter, func() int { return 4 }))

	ctx := context.Background()
	metrics.RecordIngest(ctx, "csv", 2048, nil)
	metrics.RecordCleaning(ctx, "drop_duplicates", 3, 0)
	metrics.RecordConversion(ctx, "excel")
	metrics.RecordDuration(ctx, "convert", 15*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "sweeper_files_ingested_total")
	assert.Contains(t, body, "sweeper_conversions_total")
	assert.Regexp(t, `sweeper_active_datasets(\{[^}]*\})? 4`, body)
	assert.Contains(t, body, "go_goroutines")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitialization_Tracing(t *testing.T) {
	logger := NewLoggerWithWriter(&bytes.Buffer{}, "info")

	providers, err := InitializeOTel(&OTelConfig{ServiceName: "test", EnableTracing: true, SampleRatio: 1}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "op")
	defer span.End()

	assert.Len(t, TraceIDFromContext(ctx), 32)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{ServiceName: "svc", MetricsEnabled: true})

	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
}

func TestSweeperMetrics_NilSafe(t *testing.T) {
	var m *SweeperMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordIngest(ctx, "csv", 1, nil)
		m.RecordCleaning(ctx, "fill_missing", 0, 2)
		m.RecordConversion(ctx, "csv")
		m.RecordChart(ctx, "png")
		m.RecordDuration(ctx, "x", time.Second, nil)
	})
}
