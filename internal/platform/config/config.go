package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Outbox deliverers.
const (
	DelivererLog   = "log"
	DelivererKafka = "kafka"
	DelivererNATS  = "nats"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StoreDriver    string
	MigrationsPath string

	JWTSecret string
	JWTIssuer string

	RateLimit          string
	CORSAllowedOrigins []string

	QueryCacheSize int
	QueryCacheTTL  time.Duration

	Outbox OutboxConfig

	Telemetry TelemetryConfig

	ApprovalPolicy domain.ApprovalPolicy
}

// OutboxConfig configures the relay and its deliverer.
type OutboxConfig struct {
	PollInterval      time.Duration
	BatchSize         int
	MaxRetries        int
	Deliverer         string
	KafkaBrokers      []string
	KafkaTopicPrefix  string
	NATSURL           string
	NATSSubjectPrefix string
}

// TelemetryConfig switches on OpenTelemetry export. Without an endpoint the
// process keeps the no-op global providers.
type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ExportInterval time.Duration
}

// Active reports whether SDK providers should be installed.
func (t TelemetryConfig) Active() bool {
	return t.Enabled && t.Endpoint != ""
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()
	return load(viper.New())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", true)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_ISSUER", "procureflow")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("QUERY_CACHE_SIZE", 1024)
	v.SetDefault("QUERY_CACHE_TTL", "30s")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "10s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_MAX_RETRIES", 0)
	v.SetDefault("OUTBOX_DELIVERER", DelivererLog)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "procureflow.")
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("NATS_SUBJECT_PREFIX", "procureflow")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "procureflow")
	v.SetDefault("OTEL_EXPORT_INTERVAL", "15s")
	v.SetDefault("APPROVAL_LOW_THRESHOLD", "100000")
	v.SetDefault("APPROVAL_HIGH_THRESHOLD", "300000")
	v.SetDefault("APPROVAL_STEP_ROLES", strings.Join([]string{domain.RoleManager, domain.RoleDirector, domain.RoleExecutive}, ","))
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    v.GetString("PGSQL_URL"),
		Port:           v.GetString("PORT"),
		IsProduction:   v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  v.GetBool("ENABLE_DB_CHECK"),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTIssuer:      v.GetString("JWT_ISSUER"),
		RateLimit:      v.GetString("RATE_LIMIT"),
		QueryCacheSize: v.GetInt("QUERY_CACHE_SIZE"),
		Outbox: OutboxConfig{
			BatchSize:         v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxRetries:        v.GetInt("OUTBOX_MAX_RETRIES"),
			Deliverer:         strings.ToLower(v.GetString("OUTBOX_DELIVERER")),
			KafkaBrokers:      splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopicPrefix:  v.GetString("KAFKA_TOPIC_PREFIX"),
			NATSURL:           v.GetString("NATS_URL"),
			NATSSubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Telemetry: TelemetryConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			Endpoint:    strings.TrimSpace(v.GetString("OTEL_ENDPOINT")),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	var err error
	if cfg.QueryCacheTTL, err = parseDuration(v, "QUERY_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Outbox.PollInterval, err = parseDuration(v, "OUTBOX_POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Telemetry.ExportInterval, err = parseDuration(v, "OTEL_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" && cfg.StoreDriver == StoreDriverPostgres {
		slog.Warn("PGSQL_URL environment variable not set.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
		slog.Warn("PORT environment variable not set.", slog.String("default", cfg.Port))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		slog.Warn("OTEL_ENABLED is set without OTEL_ENDPOINT; telemetry stays disabled.")
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "procureflow"
	}
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" && cfg.IsProduction {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.Outbox.Deliverer {
	case DelivererLog, DelivererKafka, DelivererNATS:
	default:
		return nil, fmt.Errorf("unknown OUTBOX_DELIVERER %q", cfg.Outbox.Deliverer)
	}
	if cfg.Outbox.BatchSize <= 0 {
		return nil, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.Outbox.BatchSize)
	}
	if cfg.Outbox.MaxRetries < 0 {
		return nil, fmt.Errorf("OUTBOX_MAX_RETRIES must not be negative, got %d", cfg.Outbox.MaxRetries)
	}

	if cfg.ApprovalPolicy, err = approvalPolicy(v); err != nil {
		return nil, err
	}
	return cfg, nil
}

func approvalPolicy(v *viper.Viper) (domain.ApprovalPolicy, error) {
	low, err := decimal.NewFromString(v.GetString("APPROVAL_LOW_THRESHOLD"))
	if err != nil {
		return domain.ApprovalPolicy{}, fmt.Errorf("invalid APPROVAL_LOW_THRESHOLD: %w", err)
	}
	high, err := decimal.NewFromString(v.GetString("APPROVAL_HIGH_THRESHOLD"))
	if err != nil {
		return domain.ApprovalPolicy{}, fmt.Errorf("invalid APPROVAL_HIGH_THRESHOLD: %w", err)
	}
	policy := domain.ApprovalPolicy{
		LowThreshold:  low,
		HighThreshold: high,
		StepRoles:     splitList(v.GetString("APPROVAL_STEP_ROLES")),
	}
	if err := policy.Validate(); err != nil {
		return domain.ApprovalPolicy{}, err
	}
	return policy, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s (%q): %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
