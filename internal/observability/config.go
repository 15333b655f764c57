package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/storefront/internal/config"
)

// Config holds the observability settings shared by logging, metrics
// and tracing.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig derives observability settings from the application
// configuration and OTEL_* environment overrides.
func LoadConfig(cfg config.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		OtelEnabled:          getenvBool("OTEL_ENABLED", false),
		OtelExporterEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		OtelSamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 1.0),
	}
}

// Debug reports whether debug-level diagnostics are enabled.
func (c Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug") || strings.EqualFold(c.Environment, "development")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
