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

// Metrics exposes application-level instruments.
type Metrics struct {
	webhookEvents    metric.Int64Counter
	orderTransitions metric.Int64Counter
	cascadeAttempts  metric.Int64Counter
	checkoutSweeps   metric.Int64Counter
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "storefront"
	}
	meter := provider.Meter(name)

	webhookEvents, err := meter.Int64Counter("storefront_webhook_events_total")
	if err != nil {
		return nil, err
	}
	orderTransitions, err := meter.Int64Counter("storefront_order_transitions_total")
	if err != nil {
		return nil, err
	}
	cascadeAttempts, err := meter.Int64Counter("storefront_cascade_attempts_total")
	if err != nil {
		return nil, err
	}
	checkoutSweeps, err := meter.Int64Counter("storefront_checkout_swept_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookEvents:    webhookEvents,
		orderTransitions: orderTransitions,
		cascadeAttempts:  cascadeAttempts,
		checkoutSweeps:   checkoutSweeps,
	}, nil
}

// RecordWebhookEvent increments inbound webhook counts per provider and outcome.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrderTransition increments order status transition counts.
func (m *Metrics) RecordOrderTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCascadeAttempt increments gateway call counts per result.
func (m *Metrics) RecordCascadeAttempt(ctx context.Context, gateway, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("gateway", strings.TrimSpace(gateway)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.cascadeAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckoutSwept adds the number of attempts abandoned by a sweep.
func (m *Metrics) RecordCheckoutSwept(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.checkoutSweeps.Add(ctx, count)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
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
	"provider": {},
	"outcome":  {},
	"status":   {},
	"gateway":  {},
	"result":   {},
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
