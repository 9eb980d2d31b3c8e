package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/routing"
)

var testEnvVars = []string{
	"PORT", "LOG_LEVEL", "LOG_FILE", "ROUTES_FILE", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"ROUTER_MATCH_ALL", "ROUTER_CORRELATION", "ROUTER_DETERMINISTIC", "ROUTER_COUNTER", "ROUTER_MAX_CONCURRENCY", "EXPRESSION_CACHE_TTL",
	"RECIPIENT_CACHE_TTL", "CORRELATOR_TIMEOUT", "REDIS_URL", "RABBITMQ_URL", "KAFKA_BROKERS",
	"AWS_REGION", "GCP_PROJECT_ID",
}

func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range testEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearTestEnvVars(t)

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "outbound-router.log", cfg.LogFile)
	assert.Equal(t, "routes.json", cfg.RoutesFile)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.MatchAll)
	assert.Equal(t, routing.CorrelationIfNotSet, cfg.CorrelationMode())
	assert.True(t, cfg.Deterministic)
	assert.Equal(t, "local", cfg.Counter)
	assert.Zero(t, cfg.MaxConcurrency)
	assert.Equal(t, 10*time.Minute, cfg.ExpressionCacheTTL)
	assert.Zero(t, cfg.RecipientCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.CorrelatorTimeout)
	assert.Empty(t, cfg.KafkaBrokers)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearTestEnvVars(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ROUTES_FILE", "/etc/router/routes.json")
	t.Setenv("ROUTER_MATCH_ALL", "true")
	t.Setenv("ROUTER_CORRELATION", "always")
	t.Setenv("ROUTER_DETERMINISTIC", "false")
	t.Setenv("RECIPIENT_CACHE_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ROUTER_COUNTER", "redis")
	t.Setenv("ROUTER_MAX_CONCURRENCY", "8")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/etc/router/routes.json", cfg.RoutesFile)
	assert.True(t, cfg.MatchAll)
	assert.Equal(t, routing.CorrelationAlways, cfg.CorrelationMode())
	assert.False(t, cfg.Deterministic)
	assert.Equal(t, 5*time.Minute, cfg.RecipientCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "redis", cfg.Counter)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	require.NoError(t, cfg.Validate())
}

func TestGetBoolEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("ROUTER_MATCH_ALL", "maybe")
	assert.True(t, getBoolEnv("ROUTER_MATCH_ALL", true))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT"},
		{"missing routes file", func(c *Config) { c.RoutesFile = "" }, "ROUTES_FILE"},
		{"bad correlation", func(c *Config) { c.Correlation = "SOMETIMES" }, "ROUTER_CORRELATION"},
		{"unparsable duration", func(c *Config) { c.RequestTimeout = -1 }, "REQUEST_TIMEOUT"},
		{"zero correlator timeout", func(c *Config) { c.CorrelatorTimeout = 0 }, "CORRELATOR_TIMEOUT"},
		{"bad redis url", func(c *Config) { c.RedisURL = "localhost:6379" }, "REDIS_URL"},
		{"unknown counter", func(c *Config) { c.Counter = "zookeeper" }, "ROUTER_COUNTER"},
		{"redis counter without url", func(c *Config) { c.Counter = "redis" }, "REDIS_URL"},
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }, "ROUTER_MAX_CONCURRENCY"},
		{"bad rabbitmq url", func(c *Config) { c.RabbitMQURL = "localhost:5672" }, "RABBITMQ_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnvVars(t)
			cfg := Load()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDurationEnv_Invalid(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	cfg := Load()
	assert.Equal(t, time.Duration(-1), cfg.ShutdownTimeout)
	assert.Error(t, cfg.Validate())
}
