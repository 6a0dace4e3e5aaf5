package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.InDelta(t, 0.10, cfg.PlatformFeeRate, 1e-9)
	assert.Equal(t, "RUB", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 15*time.Second, cfg.OrderLockTimeout)
	assert.Empty(t, cfg.Gateway.BaseURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DatabaseURL)
}

func TestFromEnv_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnv_ProductionRejectsMemoryStore(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("PLATFORM_FEE_RATE", "1.5")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("PLATFORM_FEE_RATE", "0.1")
	t.Setenv("GATEWAY_TIMEOUT", "soon")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_ListsAndPostgresParts(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "pg")
	t.Setenv("POSTGRESQL_USER", "app")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "orders")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "postgres://app:p%40ss@pg:5432/orders?sslmode=disable", cfg.DatabaseURL)
}
