package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_PROTOCOL", "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_SAMPLING_RATIO", "RECEIPT_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "grpc", cfg.OTLPProtocol)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, 1.0, cfg.OTelSamplingRatio)
	assert.Equal(t, 24*time.Hour, cfg.ReceiptCacheTTL)
}

func TestLoad_ObservabilityOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTLP_ENDPOINT", "legacy:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_METRICS_ENABLED", "1")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("DEPLOYMENT_ENV", "staging")

	cfg := Load()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.Equal(t, "http", cfg.OTLPProtocol)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.OTelMetricsEnabled)
	assert.Equal(t, 0.25, cfg.OTelSamplingRatio)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "half")
	t.Setenv("REDIS_DB", "two")
	t.Setenv("SEED_DEMO_DATA", "maybe")

	cfg := Load()
	assert.Equal(t, 1.0, cfg.OTelSamplingRatio)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.SeedDemoData)
}
