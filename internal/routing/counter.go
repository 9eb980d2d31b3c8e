package routing

import "sync/atomic"

// Counter hands out round-robin indexes
type Counter interface {
	// NextIndex returns the next index in [0, modulus)
	NextIndex(modulus int) int
}

// AtomicCounter is a lock-free Counter safe for concurrent use
type AtomicCounter struct {
	n atomic.Uint64
}

func (c *AtomicCounter) NextIndex(modulus int) int {
	if modulus <= 0 {
		return 0
	}
	return int((c.n.Add(1) - 1) % uint64(modulus))
}

var shared = &AtomicCounter{}

// SharedCounter returns the process-wide counter used by non-deterministic
// routers. Concurrent callers never receive the same raw value.
func SharedCounter() Counter { return shared }

// localCounter is owned by a single invocation
type localCounter struct {
	n int
}

func (c *localCounter) NextIndex(modulus int) int {
	if modulus <= 0 {
		return 0
	}
	i := c.n % modulus
	c.n++
	return i
}
