package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes Prometheus instruments for receipts and HTTP traffic.
type Metrics struct {
	serialAssignments *prometheus.CounterVec
	sequenceHeals     prometheus.Counter
	ledgerBuilds      *prometheus.CounterVec
	receiptRenders    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	otel *otelInstruments
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		serialAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bursar_receipt_serial_assignments_total",
			Help: "Receipt serial assignment calls by outcome.",
		}, []string{"outcome"}),
		sequenceHeals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bursar_sequence_heals_total",
			Help: "Times a counter was advanced past existing receipt serials.",
		}),
		ledgerBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bursar_receipt_ledger_builds_total",
			Help: "Receipt ledger build calls by outcome.",
		}, []string{"outcome"}),
		receiptRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bursar_receipt_renders_total",
			Help: "Receipt PDF renders by cache result.",
		}, []string{"cache"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bursar_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bursar_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	collectors := []prometheus.Collector{
		m.serialAssignments,
		m.sequenceHeals,
		m.ledgerBuilds,
		m.receiptRenders,
		m.httpRequests,
		m.httpDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordSerialAssignment counts an assignSerial call; outcome is assigned, existing or failed.
func (m *Metrics) RecordSerialAssignment(outcome string) {
	if m == nil {
		return
	}
	outcome = sanitizeLabel(outcome)
	m.serialAssignments.WithLabelValues(outcome).Inc()
	if m.otel != nil {
		m.otel.serialAssignments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *Metrics) RecordSequenceHeal() {
	if m == nil {
		return
	}
	m.sequenceHeals.Inc()
	if m.otel != nil {
		m.otel.sequenceHeals.Add(context.Background(), 1)
	}
}

// RecordLedgerBuild counts a buildLedger call; outcome is created, existing or rejected.
func (m *Metrics) RecordLedgerBuild(outcome string) {
	if m == nil {
		return
	}
	outcome = sanitizeLabel(outcome)
	m.ledgerBuilds.WithLabelValues(outcome).Inc()
	if m.otel != nil {
		m.otel.ledgerBuilds.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *Metrics) RecordReceiptRender(cacheHit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.receiptRenders.WithLabelValues(label).Inc()
	if m.otel != nil {
		m.otel.receiptRenders.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cache", label)))
	}
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
