package routing

import (
	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/common/validation"
	"outbound-router/internal/message"
)

// ContinuePredicate decides whether a multicasting router moves on to the
// next route after a response or an error
type ContinuePredicate func(resp *message.Message, err error) bool

// Config holds the behaviour shared by every router variant
type Config struct {
	// Correlation controls how parts are stamped
	Correlation CorrelationMode `validate:"correlation_mode"`
	// Sequential appends "-<seq>" to generated correlation ids
	Sequential bool
	// Mapper computes the base correlation id. Defaults to MessageIDMapper.
	Mapper CorrelationIDMapper

	// BatchSize groups split elements into batches when greater than 1
	BatchSize int `validate:"gte=0"`
	// CounterVariable, when set, names the event variable holding the 1-based part index
	CounterVariable string
	// RootMessageVariable, when set, names the event variable holding the original message
	RootMessageVariable string

	// ReplyTo is stamped on every dispatched message and forces asynchronous sends
	ReplyTo string
	// Synchronous overrides the event's exchange pattern when set
	Synchronous *bool

	// FailIfNoMatch makes a part no route accepts an error instead of a warning
	FailIfNoMatch bool
	// DisableRoundRobin restarts the route scan at the first route for every part
	DisableRoundRobin bool
	// Deterministic starts every invocation at the first route. When false a
	// shared counter spreads load across concurrent invocations.
	Deterministic bool
	// Counter replaces the shared counter used when Deterministic is false
	Counter Counter

	// Filter decides whether the router accepts a message inside a collection
	Filter message.Filter
	// Continue decides whether multicasting continues after each route
	Continue ContinuePredicate
	// MaxConcurrency limits parallel sends for scatter-gather; 0 is unlimited
	MaxConcurrency int `validate:"gte=0"`
	// DisposeRoutes makes Dispose dispose the routes as well
	DisposeRoutes bool

	Logger logging.Logger
}

// Option configures a router
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Correlation:   CorrelationIfNotSet,
		Mapper:        MessageIDMapper,
		FailIfNoMatch: true,
		Deterministic: true,
	}
}

func newConfig(opts []Option) (Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validation.ValidateStruct(cfg); err != nil {
		return cfg, apperrors.ConfigError("invalid router options").WithCause(err)
	}
	if cfg.Mapper == nil {
		cfg.Mapper = MessageIDMapper
	}
	if cfg.Counter == nil {
		cfg.Counter = SharedCounter()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}
	return cfg, nil
}

// WithCorrelation sets the correlation mode
func WithCorrelation(mode CorrelationMode) Option {
	return func(c *Config) { c.Correlation = mode }
}

// WithSequentialCorrelation appends the sequence number to generated ids
func WithSequentialCorrelation(sequential bool) Option {
	return func(c *Config) { c.Sequential = sequential }
}

// WithCorrelationIDMapper sets how the base correlation id is computed
func WithCorrelationIDMapper(m CorrelationIDMapper) Option {
	return func(c *Config) { c.Mapper = m }
}

// WithBatchSize groups split elements into batches of size n
func WithBatchSize(n int) Option {
	return func(c *Config) { c.BatchSize = n }
}

// WithCounterVariable exposes the 1-based part index as an event variable
func WithCounterVariable(name string) Option {
	return func(c *Config) { c.CounterVariable = name }
}

// WithRootMessageVariable exposes the original message as an event variable
func WithRootMessageVariable(name string) Option {
	return func(c *Config) { c.RootMessageVariable = name }
}

// WithReplyTo stamps a reply destination and sends asynchronously
func WithReplyTo(replyTo string) Option {
	return func(c *Config) { c.ReplyTo = replyTo }
}

// WithSynchronous overrides the caller's exchange pattern
func WithSynchronous(sync bool) Option {
	return func(c *Config) { c.Synchronous = &sync }
}

// WithFailIfNoMatch sets whether an unmatched part is an error
func WithFailIfNoMatch(fail bool) Option {
	return func(c *Config) { c.FailIfNoMatch = fail }
}

// WithDisableRoundRobin restarts the route scan for every part
func WithDisableRoundRobin(disable bool) Option {
	return func(c *Config) { c.DisableRoundRobin = disable }
}

// WithDeterministic sets whether every invocation starts at the first route
func WithDeterministic(deterministic bool) Option {
	return func(c *Config) { c.Deterministic = deterministic }
}

// WithCounter replaces the shared round-robin counter
func WithCounter(counter Counter) Option {
	return func(c *Config) { c.Counter = counter }
}

// WithFilter sets the router's acceptance filter
func WithFilter(f message.Filter) Option {
	return func(c *Config) { c.Filter = f }
}

// WithContinuePredicate sets when multicasting continues
func WithContinuePredicate(p ContinuePredicate) Option {
	return func(c *Config) { c.Continue = p }
}

// WithMaxConcurrency bounds parallel sends
func WithMaxConcurrency(n int) Option {
	return func(c *Config) { c.MaxConcurrency = n }
}

// WithRouteDisposal makes Dispose dispose the routes
func WithRouteDisposal(dispose bool) Option {
	return func(c *Config) { c.DisposeRoutes = dispose }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
