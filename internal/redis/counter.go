package redis

import (
	"context"
	"sync/atomic"
	"time"

	"outbound-router/internal/common/logging"
)

const counterTimeout = 250 * time.Millisecond

// Counter is a round-robin counter shared by every instance connected to the
// same Redis. Each call increments one key. When Redis cannot be reached the
// counter falls back to a process-local sequence so routing keeps working.
type Counter struct {
	client   *Client
	key      string
	fallback atomic.Uint64
	logger   logging.Logger
}

// NewCounter returns a counter stored under name
func (c *Client) NewCounter(name string) *Counter {
	return &Counter{
		client: c,
		key:    c.key("counter:" + name),
		logger: logging.GetGlobalLogger().WithFields(logging.String("counter", name)),
	}
}

// NextIndex returns the next index in [0, modulus)
func (c *Counter) NextIndex(modulus int) int {
	if modulus <= 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), counterTimeout)
	defer cancel()

	n, err := c.client.rdb.Incr(ctx, c.key).Result()
	if err != nil {
		c.logger.Warn("Shared counter unavailable, using local sequence", logging.Err(err))
		return int((c.fallback.Add(1) - 1) % uint64(modulus))
	}
	return int(uint64(n-1) % uint64(modulus))
}

// Reset sets the shared sequence back to zero
func (c *Counter) Reset(ctx context.Context) error {
	return c.client.rdb.Del(ctx, c.key).Err()
}
