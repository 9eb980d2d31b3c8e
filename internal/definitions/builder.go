package definitions

import (
	"context"
	"time"

	"outbound-router/internal/brokers"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/expression"
	"outbound-router/internal/routing"
)

// Defaults are the environment-wide settings definitions fall back on
type Defaults struct {
	MatchAll          bool
	Correlation       routing.CorrelationMode
	Deterministic     bool
	MaxConcurrency    int
	// Counter replaces the process-wide round-robin counter when set
	Counter           routing.Counter
	RecipientCacheTTL time.Duration
	CorrelatorTimeout time.Duration

	RedisURL     string
	RabbitMQURL  string
	KafkaBrokers []string
	AWSRegion    string
	GCPProjectID string
}

// DefaultDefaults matches an unconfigured environment
func DefaultDefaults() Defaults {
	return Defaults{
		Correlation:       routing.CorrelationIfNotSet,
		Deterministic:     true,
		CorrelatorTimeout: 30 * time.Second,
	}
}

// Builder turns a Definition into live destinations and routers
type Builder struct {
	defaults     Defaults
	evaluator    *expression.Evaluator
	brokers      *brokers.Registry
	destinations *destination.Registry
	logger       logging.Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithDefaults sets the environment defaults
func WithDefaults(d Defaults) BuilderOption {
	return func(b *Builder) { b.defaults = d }
}

// WithEvaluator shares an expression evaluator with the built routers
func WithEvaluator(e *expression.Evaluator) BuilderOption {
	return func(b *Builder) { b.evaluator = e }
}

// WithBrokerRegistry replaces the registry of broker types
func WithBrokerRegistry(r *brokers.Registry) BuilderOption {
	return func(b *Builder) { b.brokers = r }
}

// WithDestinations pre-populates the destination registry. Definitions may
// route to destinations registered here without declaring them.
func WithDestinations(r *destination.Registry) BuilderOption {
	return func(b *Builder) { b.destinations = r }
}

func WithLogger(l logging.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{defaults: DefaultDefaults()}
	for _, opt := range opts {
		opt(b)
	}
	if b.evaluator == nil {
		b.evaluator = expression.Default()
	}
	if b.brokers == nil {
		b.brokers = BrokerRegistry()
	}
	if b.destinations == nil {
		b.destinations = destination.NewRegistry()
	}
	if b.logger == nil {
		b.logger = logging.GetGlobalLogger()
	}
	return b
}

// Destinations returns the registry of built destinations. Routers do not
// own their routes, so callers dispose these after the collection.
func (b *Builder) Destinations() *destination.Registry {
	return b.destinations
}

// Build creates every destination and router of def and returns an
// initialised collection. Destinations are built in declaration order, so
// an aggregator must follow its target. On failure everything built so far
// is disposed.
func (b *Builder) Build(def *Definition) (*routing.Collection, error) {
	var built []destination.Destination
	fail := func(err error) (*routing.Collection, error) {
		if disposeErr := destination.DisposeAll(built...); disposeErr != nil {
			b.logger.Error("Failed to dispose destinations after build error", disposeErr)
		}
		return nil, err
	}

	for _, dd := range def.Destinations {
		d, err := b.buildDestination(dd)
		if err != nil {
			return fail(err)
		}
		if err := b.destinations.Register(d); err != nil {
			built = append(built, d)
			return fail(err)
		}
		built = append(built, d)
		b.logger.Debug("Destination built",
			logging.Destination(dd.Name),
			logging.String("type", dd.Type),
		)
	}

	matchAll := b.defaults.MatchAll
	if def.MatchAll != nil {
		matchAll = *def.MatchAll
	}
	opts := []routing.CollectionOption{
		routing.WithMatchAll(matchAll),
		routing.WithCollectionLogger(b.logger),
	}
	if def.CatchAll != nil {
		if def.CatchAll.Destination == "" {
			opts = append(opts, routing.WithCatchAll(routing.LoggingCatchAll{Logger: b.logger}))
		} else {
			d, err := b.destinations.Resolve(context.Background(), def.CatchAll.Destination)
			if err != nil {
				return fail(errors.ConfigError("catch-all").WithCause(err))
			}
			opts = append(opts, routing.WithCatchAll(routing.ForwardingCatchAll{Destination: d}))
		}
	}
	collection := routing.NewCollection(opts...)

	for _, rd := range def.Routers {
		r, err := b.buildRouter(rd)
		if err != nil {
			return fail(err)
		}
		if err := collection.AddRouter(context.Background(), r); err != nil {
			return fail(err)
		}
	}

	if err := collection.Initialise(); err != nil {
		return fail(err)
	}
	b.logger.Info("Routing definitions built",
		logging.Int("destinations", len(def.Destinations)),
		logging.Int("routers", len(def.Routers)),
		logging.Bool("match_all", matchAll),
	)
	return collection, nil
}

// LoadAndBuild reads path and builds it
func (b *Builder) LoadAndBuild(path string) (*routing.Collection, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	return b.Build(def)
}
