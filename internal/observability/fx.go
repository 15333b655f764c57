package observability

import (
	"github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/observability/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Module wires logging, metrics and tracing providers.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		loggerConfig,
		metricsConfig,
		tracingConfig,
		logger.New,
		metrics.NewProvider,
		metrics.New,
		tracing.NewProvider,
	),
	fx.Invoke(func(trace.TracerProvider) {}),
)

func loggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: true,
	}
}

func metricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}

func tracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
		Version:          cfg.Version,
	}
}
