package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordsOutcomes(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordSerialAssignment("assigned")
	m.RecordSerialAssignment("assigned")
	m.RecordSerialAssignment("existing")
	m.RecordLedgerBuild("")
	m.RecordSequenceHeal()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.serialAssignments.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.serialAssignments.WithLabelValues("existing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerBuilds.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sequenceHeals))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSerialAssignment("assigned")
		m.RecordLedgerBuild("created")
		m.RecordReceiptRender(true)
		m.RecordSequenceHeal()
	})
}

func TestMetrics_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_GinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/receipts", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/receipts", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/receipts", "200")))
}

func TestMetrics_ReceiptRendersByCacheResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordReceiptRender(false)
	m.RecordReceiptRender(true)
	m.RecordReceiptRender(true)

	families, err := reg.Gather()
	require.NoError(t, err)

	var renders *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "bursar_receipt_renders_total" {
			renders = family
		}
	}
	require.NotNil(t, renders)

	byCache := map[string]float64{}
	for _, metric := range renders.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "cache" {
				byCache[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"hit": 2, "miss": 1}, byCache)
}

func TestMetrics_WithMeterMirrorsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, m.WithMeter(provider, "bursar-test"))

	m.RecordLedgerBuild("created")
	m.RecordLedgerBuild("created")
	m.RecordLedgerBuild("existing")
	m.RecordSequenceHeal()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			data, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			byOutcome := map[string]int64{}
			for _, point := range data.DataPoints {
				outcome, _ := point.Attributes.Value("outcome")
				byOutcome[outcome.AsString()] += point.Value
			}
			sums[metric.Name] = byOutcome
		}
	}

	assert.Equal(t, map[string]int64{"created": 2, "existing": 1}, sums["bursar.receipt.ledger_builds"])
	assert.Equal(t, map[string]int64{"": 1}, sums["bursar.sequence.heals"])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerBuilds.WithLabelValues("created")))
}

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	provider, err := NewProvider(nil, ProviderConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)

	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, m.WithMeter(provider, ""))
	assert.NotPanics(t, func() { m.RecordReceiptRender(true) })
}

func TestNewProvider_RejectsUnknownProtocol(t *testing.T) {
	_, err := NewProvider(nil, ProviderConfig{Enabled: true, ExporterProtocol: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
