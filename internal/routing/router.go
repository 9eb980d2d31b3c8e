package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// Router kinds reported by Kind
const (
	KindPassThrough       = "pass_through"
	KindSplitter          = "splitter"
	KindRoundRobin        = "round_robin"
	KindExpressionSplit   = "expression_splitter"
	KindRecipientList     = "recipient_list"
	KindChaining          = "chaining"
	KindMulticast         = "multicast"
	KindScatterGather     = "scatter_gather"
	KindExceptionFallback = "exception_fallback"
	KindTransform         = "transform"
)

// Router routes one event to one or more destinations and returns the
// aggregated outcome.
//
// Route is safe for concurrent use. Route list mutation and lifecycle
// transitions are serialised; a Route call in flight keeps iterating the route
// snapshot it started with.
type Router interface {
	// Name identifies the router in logs and errors
	Name() string

	// Kind is the strategy name, for example "round_robin"
	Kind() string

	// IsMatch reports whether the router wants msg when it sits in a Collection
	IsMatch(msg *message.Message) (bool, error)

	// Route dispatches event. A result for which IsNoResult is true means there
	// was nothing to return and is not an error.
	Route(ctx context.Context, event *message.Event) (*message.Event, error)

	// Routes returns a snapshot of the configured destinations
	Routes() []destination.Destination

	// AddRoute appends d and brings it to the router's lifecycle state
	AddRoute(ctx context.Context, d destination.Destination) error

	// RemoveRoute removes d, stopping it if the router is started
	RemoveRoute(ctx context.Context, d destination.Destination) error

	State() State
	Initialise() error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dispose() error
}

// base carries what every variant shares: configuration, lifecycle, the
// route snapshot and the dispatch helpers.
type base struct {
	lifecycle

	name   string
	kind   string
	cfg    Config
	logger logging.Logger

	// validateRoutes checks a candidate route list before it is stored and
	// again on Initialise
	validateRoutes func(routes []destination.Destination) error
}

func newBase(name, kind string, routes []destination.Destination, opts []Option) (*base, error) {
	if name == "" {
		return nil, apperrors.ConfigError("router name is required")
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if slices.Contains(routes, nil) {
		return nil, apperrors.ConfigErrorf("router %s: %v", name, ErrNilDestination)
	}

	b := &base{
		name:   name,
		kind:   kind,
		cfg:    cfg,
		logger: cfg.Logger.WithFields(logging.Router(name), logging.String("kind", kind)),
	}
	b.store(slices.Clone(routes))
	return b, nil
}

func (b *base) Name() string { return b.name }
func (b *base) Kind() string { return b.kind }

// Config returns the router's configuration
func (b *base) Config() Config { return b.cfg }

func (b *base) IsMatch(msg *message.Message) (bool, error) {
	if b.cfg.Filter == nil {
		return true, nil
	}
	return b.cfg.Filter.Accept(msg), nil
}

func (b *base) Routes() []destination.Destination {
	return slices.Clone(b.snapshot())
}

func (b *base) AddRoute(ctx context.Context, d destination.Destination) error {
	if d == nil {
		return ErrNilDestination
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := append(slices.Clone(b.snapshot()), d)
	if err := b.checkRoutes(next); err != nil {
		return err
	}
	if err := b.catchUp(ctx, d); err != nil {
		return fmt.Errorf("add route %s: %w", d.Name(), err)
	}
	b.store(next)
	return nil
}

func (b *base) RemoveRoute(ctx context.Context, d destination.Destination) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	routes := b.snapshot()
	i := slices.Index(routes, d)
	if i < 0 {
		return apperrors.NotFoundError("route")
	}
	if b.State() == StateStarted {
		if err := destination.Stop(ctx, d); err != nil {
			return fmt.Errorf("remove route %s: %w", d.Name(), err)
		}
	}
	b.store(slices.Delete(slices.Clone(routes), i, i+1))
	return nil
}

func (b *base) Initialise() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.transition(StateInitialised, func() error {
		routes := b.snapshot()
		if err := b.checkRoutes(routes); err != nil {
			return err
		}
		for _, d := range routes {
			if err := destination.Initialise(d); err != nil {
				return apperrors.ConfigErrorf("router %s: initialise %s", b.name, d.Name()).WithCause(err)
			}
		}
		return nil
	})
}

func (b *base) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.transition(StateStarted, func() error {
		for _, d := range b.snapshot() {
			if err := destination.Start(ctx, d); err != nil {
				return fmt.Errorf("router %s: start %s: %w", b.name, d.Name(), err)
			}
		}
		b.logger.Debug("Router started", logging.Int("routes", len(b.snapshot())))
		return nil
	})
}

func (b *base) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stopLocked(ctx)
}

func (b *base) stopLocked(ctx context.Context) error {
	return b.transition(StateStopped, func() error {
		var errs []error
		for _, d := range b.snapshot() {
			if err := destination.Stop(ctx, d); err != nil {
				errs = append(errs, fmt.Errorf("stop %s: %w", d.Name(), err))
			}
		}
		return stderrors.Join(errs...)
	})
}

func (b *base) Dispose() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State() == StateStarted {
		if err := b.stopLocked(context.Background()); err != nil {
			b.logger.Warn("Router did not stop cleanly before dispose", logging.Err(err))
			b.state.Store(int32(StateStopped))
		}
	}
	return b.transition(StateDisposed, func() error {
		if !b.cfg.DisposeRoutes {
			return nil
		}
		return destination.DisposeAll(b.snapshot()...)
	})
}

func (b *base) checkRoutes(routes []destination.Destination) error {
	if b.validateRoutes == nil {
		return nil
	}
	if err := b.validateRoutes(routes); err != nil {
		return apperrors.ConfigErrorf("router %s: invalid routes", b.name).WithCause(err)
	}
	return nil
}

func (b *base) checkStarted() error {
	if state := b.State(); state != StateStarted {
		return fmt.Errorf("%w: router %s is %s", ErrNotStarted, b.name, state)
	}
	return nil
}

// replyTo is the router's reply destination, else the caller's
func (b *base) replyTo(event *message.Event) string {
	if b.cfg.ReplyTo != "" {
		return b.cfg.ReplyTo
	}
	return event.ReplyTo()
}

// awaitResponse resolves the exchange pattern. A reply destination always
// means asynchronous dispatch.
func (b *base) awaitResponse(event *message.Event) bool {
	if b.replyTo(event) != "" {
		return false
	}
	if b.cfg.Synchronous != nil {
		return *b.cfg.Synchronous
	}
	return event.Synchronous()
}

// counter returns the round-robin counter for one invocation
func (b *base) counter() Counter {
	if b.cfg.Deterministic {
		return &localCounter{}
	}
	return b.cfg.Counter
}

// selectRoute scans at most len(routes) candidates starting at the counter's
// next index and returns the first that accepts msg
func (b *base) selectRoute(routes []destination.Destination, counter Counter, msg *message.Message) (destination.Destination, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	if b.cfg.DisableRoundRobin {
		counter = &localCounter{}
	}
	for range routes {
		d := routes[counter.NextIndex(len(routes))]
		if destination.Accepts(d, msg) {
			return d, nil
		}
	}
	return nil, ErrNoMatchingRoute
}

// send dispatches msg to d in the context of event. With await false any
// response is discarded and nil is returned.
func (b *base) send(ctx context.Context, event *message.Event, msg *message.Message, d destination.Destination, await bool) (*message.Message, error) {
	if replyTo := b.replyTo(event); replyTo != "" {
		msg = msg.WithOutboundProperty(message.PropertyReplyTo, replyTo)
	}
	child := event.WithMessage(msg)
	ctx = message.ContextWithEvent(ctx, child)

	if await {
		if timeout, ok := msg.Timeout(); ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
	}

	resp, err := d.Send(ctx, msg, await)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.IsType(err, apperrors.ErrTypeTimeout) {
			err = apperrors.TimeoutError("send to " + d.Name()).WithCause(err)
		}
		return nil, wrapRoutingError(b.name, d, child, err)
	}
	if !await {
		return nil, nil
	}
	return resp, nil
}

// result aggregates responses into the router's return value
func (b *base) result(event *message.Event, responses []*message.Message) *message.Event {
	agg := Aggregate(responses)
	if agg == nil {
		return message.NoResult()
	}
	return event.WithMessage(agg)
}

var (
	_ Router = (*PassThrough)(nil)
	_ Router = (*Splitter)(nil)
	_ Router = (*ListSplitter)(nil)
	_ Router = (*RecipientList)(nil)
	_ Router = (*Chaining)(nil)
	_ Router = (*Multicast)(nil)
	_ Router = (*ExceptionFallback)(nil)
	_ Router = (*TransformRouter)(nil)
)
