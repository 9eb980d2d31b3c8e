package redis

import (
	"fmt"
	"time"
)

// Config configures the Redis Streams publisher
type Config struct {
	Address  string        `json:"address"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	Timeout  time.Duration `json:"timeout"`
	// Stream is used when a message carries no topic
	Stream string `json:"stream"`
	// StreamMaxLen trims streams approximately; 0 means no limit
	StreamMaxLen int64 `json:"stream_max_len"`
}

// Validate checks required fields and applies defaults
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("Redis address is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("Redis DB must not be negative, got %d", c.DB)
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.StreamMaxLen < 0 {
		c.StreamMaxLen = 0
	}
	if c.Stream == "" {
		c.Stream = "outbound-messages"
	}
	return nil
}

func (c *Config) GetType() string {
	return "redis"
}

// GetConnectionString returns the address without the password
func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("redis://%s/%d", c.Address, c.DB)
}

// DefaultConfig returns a config for a local Redis
func DefaultConfig() *Config {
	return &Config{
		Address:  "localhost:6379",
		PoolSize: 10,
		Timeout:  5 * time.Second,
		Stream:   "outbound-messages",
	}
}
