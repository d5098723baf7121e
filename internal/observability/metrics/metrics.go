package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes draw-level instruments.
type Metrics struct {
	drawBatches     metric.Int64Counter
	drawOutcomes    metric.Int64Counter
	stockDowngrades metric.Int64Counter
	drawErrors      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "lottery"
	}
	meter := provider.Meter(name)

	drawBatches, err := meter.Int64Counter("lottery_draw_batches_total")
	if err != nil {
		return nil, err
	}
	drawOutcomes, err := meter.Int64Counter("lottery_draw_outcomes_total")
	if err != nil {
		return nil, err
	}
	stockDowngrades, err := meter.Int64Counter("lottery_stock_downgrades_total")
	if err != nil {
		return nil, err
	}
	drawErrors, err := meter.Int64Counter("lottery_draw_errors_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		drawBatches:     drawBatches,
		drawOutcomes:    drawOutcomes,
		stockDowngrades: stockDowngrades,
		drawErrors:      drawErrors,
	}, nil
}

// RecordDrawBatch counts one committed batch.
func (m *Metrics) RecordDrawBatch(ctx context.Context, limitType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("limit_type", strings.TrimSpace(limitType)))
	m.drawBatches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDrawOutcome counts a single executed draw.
func (m *Metrics) RecordDrawOutcome(ctx context.Context, prizeType string, winning bool) {
	if m == nil {
		return
	}
	outcome := "lose"
	if winning {
		outcome = "win"
	}
	attrs := FilterAttributes(
		attribute.String("prize_type", strings.TrimSpace(prizeType)),
		attribute.String("outcome", outcome),
	)
	m.drawOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStockDowngrade counts selections lost to a concurrent stock race.
func (m *Metrics) RecordStockDowngrade(ctx context.Context, prizeType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("prize_type", strings.TrimSpace(prizeType)))
	m.stockDowngrades.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDrawError counts failed batches by error kind.
func (m *Metrics) RecordDrawError(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.drawErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"limit_type":  {},
	"prize_type":  {},
	"outcome":     {},
	"kind":        {},
	"backend":     {},
	"method":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
