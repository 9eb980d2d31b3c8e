// Package correlator reassembles the parts of a split message. Parts are
// grouped by correlation id until the group size is reached; the completed
// group is returned as one composite message ordered by sequence number.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/common/validation"
	"outbound-router/internal/message"
)

// DefaultMaxProcessedGroups bounds how many completed group ids are remembered
const DefaultMaxProcessedGroups = 50000

var (
	// ErrNoCorrelationID is returned for parts without a correlation id
	ErrNoCorrelationID = errors.New("message has no correlation id")

	// ErrGroupAlreadyProcessed is returned for late parts of a completed or expired group
	ErrGroupAlreadyProcessed = errors.New("correlation group already processed")

	// ErrGroupTimedOut is reported to the timeout handler when FailOnTimeout is set
	ErrGroupTimedOut = errors.New("correlation group timed out")
)

// TimeoutHandler receives the partial aggregate of an expired group. err is
// ErrGroupTimedOut when the correlator fails on timeout, nil otherwise.
type TimeoutHandler func(groupID string, partial *message.Message, err error)

// Config configures a Correlator
type Config struct {
	// Timeout is how long an incomplete group is kept
	Timeout time.Duration `validate:"gt=0"`
	// CleanupInterval is how often expired groups are swept; defaults to Timeout/2
	CleanupInterval time.Duration `validate:"gte=0"`
	// FailOnTimeout reports expired groups as failures
	FailOnTimeout bool
	// MaxProcessedGroups bounds the completed-group memory
	MaxProcessedGroups int `validate:"gte=0"`
	OnTimeout          TimeoutHandler
	Logger             logging.Logger
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:            30 * time.Second,
		MaxProcessedGroups: DefaultMaxProcessedGroups,
	}
}

type group struct {
	id        string
	expected  int
	parts     []*message.Message
	createdAt time.Time
	completed bool
}

// Correlator collects parts into groups. It is safe for concurrent use.
type Correlator struct {
	// addMu serialises Add; mu guards groups against the eviction callback
	addMu     sync.Mutex
	mu        sync.Mutex
	cfg       Config
	groups    *gocache.Cache
	processed *lru.Cache[string, struct{}]
	logger    logging.Logger
}

// New creates a Correlator
func New(cfg Config) (*Correlator, error) {
	if err := validation.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid correlator config: %w", err)
	}
	if cfg.MaxProcessedGroups == 0 {
		cfg.MaxProcessedGroups = DefaultMaxProcessedGroups
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = cfg.Timeout / 2
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}

	processed, err := lru.New[string, struct{}](cfg.MaxProcessedGroups)
	if err != nil {
		return nil, fmt.Errorf("create processed group set: %w", err)
	}

	c := &Correlator{
		cfg:       cfg,
		groups:    gocache.New(cfg.Timeout, cfg.CleanupInterval),
		processed: processed,
		logger:    cfg.Logger.WithFields(logging.Component("correlator")),
	}
	c.groups.OnEvicted(c.evicted)
	return c, nil
}

// Add records msg. When msg completes its group the reassembled message is
// returned with true.
func (c *Correlator) Add(ctx context.Context, msg *message.Message) (*message.Message, bool, error) {
	corr := msg.Correlation()
	if !corr.HasID() {
		return nil, false, ErrNoCorrelationID
	}
	id := corr.ID()

	c.addMu.Lock()
	defer c.addMu.Unlock()

	// go-cache hides expired items from Get until the janitor runs. Delete
	// evicts such a group now so it times out instead of being overwritten.
	if _, ok := c.groups.Get(id); !ok {
		c.groups.Delete(id)
	}

	c.mu.Lock()
	if c.processed.Contains(id) {
		c.mu.Unlock()
		return nil, false, fmt.Errorf("%w: %s", ErrGroupAlreadyProcessed, id)
	}

	g := c.group(id)
	g.parts = append(g.parts, msg)
	if corr.HasGroupSize() {
		g.expected = corr.GroupSize()
	}
	if g.expected == 0 || len(g.parts) < g.expected {
		c.mu.Unlock()
		return nil, false, nil
	}

	g.completed = true
	c.processed.Add(id, struct{}{})
	c.mu.Unlock()

	// Delete runs the eviction callback, which takes the lock
	c.groups.Delete(id)

	logging.WithContext(ctx).Debug("Correlation group complete",
		logging.CorrelationID(id),
		logging.Int("parts", len(g.parts)),
	)
	return Resequence(g.parts), true, nil
}

// group returns the open group for id, creating it. Callers hold c.mu.
func (c *Correlator) group(id string) *group {
	if v, ok := c.groups.Get(id); ok {
		return v.(*group)
	}
	g := &group{id: id, createdAt: time.Now()}
	c.groups.Set(id, g, gocache.DefaultExpiration)
	return g
}

func (c *Correlator) evicted(id string, v interface{}) {
	g := v.(*group)

	c.mu.Lock()
	if g.completed {
		c.mu.Unlock()
		return
	}
	g.completed = true
	c.processed.Add(id, struct{}{})
	parts := slices.Clone(g.parts)
	c.mu.Unlock()

	var err error
	if c.cfg.FailOnTimeout {
		err = fmt.Errorf("%w: %s after %s", ErrGroupTimedOut, id, time.Since(g.createdAt).Round(time.Millisecond))
	}
	c.logger.Warn("Correlation group expired before completion",
		logging.CorrelationID(id),
		logging.Int("parts", len(parts)),
		logging.Int("expected", g.expected),
		logging.Bool("failed", err != nil),
	)
	if c.cfg.OnTimeout != nil {
		c.cfg.OnTimeout(id, Resequence(parts), err)
	}
}

// Sweep expires overdue groups now instead of waiting for the cleanup interval
func (c *Correlator) Sweep() {
	c.groups.DeleteExpired()
}

// Pending returns the number of open groups
func (c *Correlator) Pending() int {
	return c.groups.ItemCount()
}

// IsProcessed reports whether the group id was completed or expired recently
func (c *Correlator) IsProcessed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed.Contains(id)
}

// Resequence orders parts by sequence number and wraps them in one composite
// message. Parts without a sequence number keep their arrival order after the
// numbered ones.
func Resequence(parts []*message.Message) *message.Message {
	sorted := slices.Clone(parts)
	slices.SortStableFunc(sorted, func(a, b *message.Message) int {
		sa, sb := a.Correlation().SequenceNumber(), b.Correlation().SequenceNumber()
		switch {
		case sa == sb:
			return 0
		case sa == 0:
			return 1
		case sb == 0:
			return -1
		default:
			return sa - sb
		}
	})
	return message.NewCollection(sorted)
}
