// Package config provides configuration management for the outbound router.
// It loads configuration from environment variables with sensible defaults and
// validates it so the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path, or "stdout" (default: outbound-router.log)
//   - ROUTES_FILE: Routing definition file (default: routes.json)
//   - REQUEST_TIMEOUT: Maximum time to process one routing request (default: 30s)
//   - SHUTDOWN_TIMEOUT: Grace period for in-flight requests on shutdown (default: 30s)
//
// Routing Defaults:
//   - ROUTER_MATCH_ALL: Invoke every matching router instead of the first (default: false)
//   - ROUTER_CORRELATION: ALWAYS, NEVER or IF_NOT_SET (default: IF_NOT_SET)
//   - ROUTER_DETERMINISTIC: Start every split at the first route (default: true)
//   - ROUTER_COUNTER: Round-robin counter for non-deterministic routers, local or redis (default: local)
//   - ROUTER_MAX_CONCURRENCY: Parallel sends per scatter-gather invocation, 0 is unlimited (default: 0)
//   - EXPRESSION_CACHE_TTL: Lifetime of compiled expressions (default: 10m)
//   - RECIPIENT_CACHE_TTL: Lifetime of resolved recipients, 0 keeps them (default: 0)
//   - CORRELATOR_TIMEOUT: How long aggregators wait for a group (default: 30s)
//
// Broker Defaults (used by destinations that leave them out):
//   - REDIS_URL: Redis connection URL
//   - RABBITMQ_URL: RabbitMQ connection URL
//   - KAFKA_BROKERS: Comma separated Kafka bootstrap servers
//   - AWS_REGION: AWS region for SQS and SNS destinations
//   - GCP_PROJECT_ID: Google Cloud project for Pub/Sub destinations
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"outbound-router/internal/routing"
)

// Config holds all configuration values for the outbound router
type Config struct {
	// Application settings
	Port            string
	LogLevel        string
	LogFile         string
	RoutesFile      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Routing defaults applied to every router in the definition file
	MatchAll           bool
	Correlation        string
	Deterministic      bool
	Counter            string
	MaxConcurrency     int
	ExpressionCacheTTL time.Duration
	RecipientCacheTTL  time.Duration
	CorrelatorTimeout  time.Duration

	// Broker defaults
	RedisURL     string
	RabbitMQURL  string
	KafkaBrokers []string
	AWSRegion    string
	GCPProjectID string
}

// Load creates a Config from environment variables. It does not validate;
// call Validate on the result.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", "outbound-router.log"),
		RoutesFile:      getEnv("ROUTES_FILE", "routes.json"),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		MatchAll:           getBoolEnv("ROUTER_MATCH_ALL", false),
		Correlation:        getEnv("ROUTER_CORRELATION", string(routing.CorrelationIfNotSet)),
		Deterministic:      getBoolEnv("ROUTER_DETERMINISTIC", true),
		Counter:            getEnv("ROUTER_COUNTER", "local"),
		MaxConcurrency:     getIntEnv("ROUTER_MAX_CONCURRENCY", 0),
		ExpressionCacheTTL: getDurationEnv("EXPRESSION_CACHE_TTL", 10*time.Minute),
		RecipientCacheTTL:  getDurationEnv("RECIPIENT_CACHE_TTL", 0),
		CorrelatorTimeout:  getDurationEnv("CORRELATOR_TIMEOUT", 30*time.Second),

		RedisURL:     getEnv("REDIS_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		KafkaBrokers: getListEnv("KAFKA_BROKERS"),
		AWSRegion:    getEnv("AWS_REGION", ""),
		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns -1 for an unparsable value so Validate can report it
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return parsed
}

// getBoolEnv accepts the strconv.ParseBool spellings; anything else yields the default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv returns -1 for an unparsable value so Validate can report it
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return parsed
}

func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// CorrelationMode returns the parsed routing default
func (c *Config) CorrelationMode() routing.CorrelationMode {
	mode, err := routing.ParseCorrelationMode(c.Correlation)
	if err != nil {
		return routing.CorrelationIfNotSet
	}
	return mode
}

// Validate checks that every value is usable and returns a descriptive error
// for the first one that is not.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.RoutesFile == "" {
		return fmt.Errorf("ROUTES_FILE is required")
	}

	if _, err := routing.ParseCorrelationMode(c.Correlation); err != nil {
		return fmt.Errorf("ROUTER_CORRELATION must be ALWAYS, NEVER or IF_NOT_SET")
	}

	switch c.Counter {
	case "local":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("ROUTER_COUNTER=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("ROUTER_COUNTER must be local or redis")
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("ROUTER_MAX_CONCURRENCY must be a non-negative integer")
	}

	durations := []struct {
		name     string
		value    time.Duration
		positive bool
	}{
		{"REQUEST_TIMEOUT", c.RequestTimeout, true},
		{"SHUTDOWN_TIMEOUT", c.ShutdownTimeout, true},
		{"EXPRESSION_CACHE_TTL", c.ExpressionCacheTTL, false},
		{"RECIPIENT_CACHE_TTL", c.RecipientCacheTTL, false},
		{"CORRELATOR_TIMEOUT", c.CorrelatorTimeout, true},
	}
	for _, d := range durations {
		if d.value < 0 || (d.positive && d.value == 0) {
			return fmt.Errorf("%s must be a valid duration (e.g., '30s', '1m')", d.name)
		}
	}

	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://")
	}
	if c.RabbitMQURL != "" && !strings.HasPrefix(c.RabbitMQURL, "amqp://") && !strings.HasPrefix(c.RabbitMQURL, "amqps://") {
		return fmt.Errorf("RABBITMQ_URL must start with amqp:// or amqps://")
	}

	return nil
}
