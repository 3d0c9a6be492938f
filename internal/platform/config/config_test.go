package config

import (
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.QueryCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 0, cfg.Outbox.MaxRetries)
	assert.Equal(t, DelivererLog, cfg.Outbox.Deliverer)
	assert.True(t, cfg.ApprovalPolicy.LowThreshold.Equal(decimal.NewFromInt(100000)))
	assert.True(t, cfg.ApprovalPolicy.HighThreshold.Equal(decimal.NewFromInt(300000)))
	assert.Equal(t, []string{domain.RoleManager, domain.RoleDirector, domain.RoleExecutive}, cfg.ApprovalPolicy.StepRoles)
	assert.False(t, cfg.Telemetry.Active())
	assert.Equal(t, "procureflow", cfg.Telemetry.ServiceName)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.ExportInterval)
}

func TestLoad_Telemetry(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Active(), "enabled without an endpoint stays off")

	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORT_INTERVAL", "5s")
	cfg, err = load(viper.New())
	require.NoError(t, err)
	assert.True(t, cfg.Telemetry.Active())
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.ExportInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("OUTBOX_DELIVERER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OUTBOX_MAX_RETRIES", "5")
	t.Setenv("QUERY_CACHE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, DelivererKafka, cfg.Outbox.Deliverer)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Outbox.KafkaBrokers)
	assert.Equal(t, 5, cfg.Outbox.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.QueryCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store driver", "STORE_DRIVER", "sqlite"},
		{"unknown deliverer", "OUTBOX_DELIVERER", "carrier-pigeon"},
		{"bad poll interval", "OUTBOX_POLL_INTERVAL", "soon"},
		{"zero batch size", "OUTBOX_BATCH_SIZE", "0"},
		{"negative retries", "OUTBOX_MAX_RETRIES", "-1"},
		{"thresholds out of order", "APPROVAL_LOW_THRESHOLD", "500000"},
		{"too few step roles", "APPROVAL_STEP_ROLES", "Manager,Director"},
		{"bad export interval", "OTEL_EXPORT_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
