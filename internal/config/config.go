package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/smallbiznis/storefront/pkg/db"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// Webhook signature secrets, one per processor. An empty secret
	// disables verification for that processor (logged as a warning).
	AtlasPayWebhookSecret string
	NexoPayWebhookSecret  string

	// Freshness window, in minutes, for signed webhook timestamps.
	WebhookTimestampWindowMin int

	AtlasPayBaseURL string
	AtlasPayAPIKey  string
	NexoPayBaseURL  string
	NexoPayAPIKey   string

	// Per-call gateway timeout in seconds. A timeout counts as a
	// processor error and is eligible for cascade fallback.
	GatewayTimeoutSec int

	// Email fallback match window for the order reconciler, in hours.
	CheckoutMatchWindowHours int

	// Inactivity window after which a pending checkout attempt is
	// swept to abandoned, in minutes.
	CheckoutAbandonAfterMin int
	SweepIntervalMin        int

	// Optional conversion-tracking postback endpoint.
	NotifyPostbackURL string
	NotifyTimeoutSec  int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "storefront"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "storefront"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		AtlasPayWebhookSecret: strings.TrimSpace(getenv("ATLASPAY_WEBHOOK_SECRET", "")),
		NexoPayWebhookSecret:  strings.TrimSpace(getenv("NEXOPAY_WEBHOOK_SECRET", "")),

		WebhookTimestampWindowMin: getenvInt("WEBHOOK_TIMESTAMP_WINDOW_MIN", 5),

		AtlasPayBaseURL: getenv("ATLASPAY_BASE_URL", "https://api.atlaspay.com.br"),
		AtlasPayAPIKey:  strings.TrimSpace(getenv("ATLASPAY_API_KEY", "")),
		NexoPayBaseURL:  getenv("NEXOPAY_BASE_URL", "https://gateway.nexopay.io"),
		NexoPayAPIKey:   strings.TrimSpace(getenv("NEXOPAY_API_KEY", "")),

		GatewayTimeoutSec: getenvInt("GATEWAY_TIMEOUT_SEC", 30),

		CheckoutMatchWindowHours: getenvInt("CHECKOUT_MATCH_WINDOW_HOURS", 24),
		CheckoutAbandonAfterMin:  getenvInt("CHECKOUT_ABANDON_AFTER_MIN", 60),
		SweepIntervalMin:         getenvInt("SWEEP_INTERVAL_MIN", 5),

		NotifyPostbackURL: strings.TrimSpace(getenv("NOTIFY_POSTBACK_URL", "")),
		NotifyTimeoutSec:  getenvInt("NOTIFY_TIMEOUT_SEC", 10),
	}
}

// DBConfig projects the database portion of the configuration.
func (c Config) DBConfig() db.Config {
	return db.Config{
		Type:            c.DBType,
		Host:            c.DBHost,
		Port:            c.DBPort,
		Name:            c.DBName,
		User:            c.DBUser,
		Password:        c.DBPassword,
		SSLMode:         c.DBSSLMode,
		MaxIdleConn:     c.DBMaxIdleConn,
		MaxOpenConn:     c.DBMaxOpenConn,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
