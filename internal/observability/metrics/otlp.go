package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProviderConfig configures the OTLP meter provider.
type ProviderConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Interval         time.Duration
}

// NewProvider registers the global meter provider. When disabled it is a noop
// and only the Prometheus registry carries the counters.
func NewProvider(lc fx.Lifecycle, cfg ProviderConfig, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("otlp metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

type otelInstruments struct {
	serialAssignments metric.Int64Counter
	sequenceHeals     metric.Int64Counter
	ledgerBuilds      metric.Int64Counter
	receiptRenders    metric.Int64Counter
}

// WithMeter mirrors the receipt counters onto an OpenTelemetry meter.
func (m *Metrics) WithMeter(provider metric.MeterProvider, name string) error {
	if m == nil || provider == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "bursar"
	}
	meter := provider.Meter(name)

	serialAssignments, err := meter.Int64Counter("bursar.receipt.serial_assignments")
	if err != nil {
		return err
	}
	sequenceHeals, err := meter.Int64Counter("bursar.sequence.heals")
	if err != nil {
		return err
	}
	ledgerBuilds, err := meter.Int64Counter("bursar.receipt.ledger_builds")
	if err != nil {
		return err
	}
	receiptRenders, err := meter.Int64Counter("bursar.receipt.renders")
	if err != nil {
		return err
	}

	m.otel = &otelInstruments{
		serialAssignments: serialAssignments,
		sequenceHeals:     sequenceHeals,
		ledgerBuilds:      ledgerBuilds,
		receiptRenders:    receiptRenders,
	}
	return nil
}
