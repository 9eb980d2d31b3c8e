package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync/atomic"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// CatchAll handles events that no router in a Collection matched
type CatchAll interface {
	Handle(ctx context.Context, event *message.Event) (*message.Event, error)
}

// CatchAllFunc adapts a function into a CatchAll
type CatchAllFunc func(ctx context.Context, event *message.Event) (*message.Event, error)

func (f CatchAllFunc) Handle(ctx context.Context, event *message.Event) (*message.Event, error) {
	return f(ctx, event)
}

// ForwardingCatchAll sends unmatched events to a fallback destination
type ForwardingCatchAll struct {
	Destination destination.Destination
}

func (c ForwardingCatchAll) Handle(ctx context.Context, event *message.Event) (*message.Event, error) {
	ctx = message.ContextWithEvent(ctx, event)
	resp, err := c.Destination.Send(ctx, event.Message(), event.Synchronous())
	if err != nil {
		return nil, wrapRoutingError("catch-all", c.Destination, event, err)
	}
	if resp == nil || !event.Synchronous() {
		return message.NoResult(), nil
	}
	return event.WithMessage(resp), nil
}

// LoggingCatchAll logs unmatched events and returns no result
type LoggingCatchAll struct {
	Logger logging.Logger
}

func (c LoggingCatchAll) Handle(_ context.Context, event *message.Event) (*message.Event, error) {
	logger := c.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger.Warn("No router matched message, catch-all discarded it",
		logging.MessageID(event.Message().ID()),
	)
	return message.NoResult(), nil
}

// Collection holds an ordered set of routers. Process hands an event to the
// first router that matches it, or to every matching router when matchAll is
// set.
type Collection struct {
	lifecycle
	routers  atomic.Pointer[[]Router]
	matchAll bool
	catchAll CatchAll
	logger   logging.Logger
}

// CollectionOption configures a Collection
type CollectionOption func(*Collection)

// WithMatchAll invokes every matching router instead of the first
func WithMatchAll(matchAll bool) CollectionOption {
	return func(c *Collection) { c.matchAll = matchAll }
}

// WithCatchAll sets the strategy used when no router matches
func WithCatchAll(catchAll CatchAll) CollectionOption {
	return func(c *Collection) { c.catchAll = catchAll }
}

// WithCollectionLogger sets the logger
func WithCollectionLogger(logger logging.Logger) CollectionOption {
	return func(c *Collection) { c.logger = logger }
}

// NewCollection creates an empty collection
func NewCollection(opts ...CollectionOption) *Collection {
	c := &Collection{logger: logging.GetGlobalLogger()}
	for _, opt := range opts {
		opt(c)
	}
	c.routers.Store(&[]Router{})
	return c
}

// MatchAll reports whether every matching router is invoked
func (c *Collection) MatchAll() bool { return c.matchAll }

// Routers returns a snapshot of the routers in evaluation order
func (c *Collection) Routers() []Router {
	return slices.Clone(*c.routers.Load())
}

// Router returns the router with the given name
func (c *Collection) Router(name string) (Router, bool) {
	for _, r := range *c.routers.Load() {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// AddRouter appends r and brings it to the collection's lifecycle state
func (c *Collection) AddRouter(ctx context.Context, r Router) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.Router(r.Name()); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRouter, r.Name())
	}

	switch c.State() {
	case StateInitialised, StateStopped:
		if err := r.Initialise(); err != nil {
			return err
		}
	case StateStarted:
		if err := r.Initialise(); err != nil {
			return err
		}
		if err := r.Start(ctx); err != nil {
			return err
		}
	case StateDisposed:
		return fmt.Errorf("%w: collection is disposed", ErrInvalidTransition)
	}

	next := append(slices.Clone(*c.routers.Load()), r)
	c.routers.Store(&next)
	return nil
}

// RemoveRouter stops, disposes and removes the named router
func (c *Collection) RemoveRouter(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.routers.Load()
	i := slices.IndexFunc(current, func(r Router) bool { return r.Name() == name })
	if i < 0 {
		return apperrors.NotFoundError("router " + name)
	}
	r := current[i]
	if r.State() == StateStarted {
		if err := r.Stop(ctx); err != nil {
			return err
		}
	}
	if err := r.Dispose(); err != nil {
		c.logger.Warn("Removed router did not dispose cleanly", logging.Router(name), logging.Err(err))
	}

	next := slices.Delete(slices.Clone(current), i, i+1)
	c.routers.Store(&next)
	return nil
}

// Initialise initialises every router
func (c *Collection) Initialise() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transition(StateInitialised, func() error {
		for _, r := range *c.routers.Load() {
			if err := r.Initialise(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Start starts every router
func (c *Collection) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transition(StateStarted, func() error {
		for _, r := range *c.routers.Load() {
			if err := r.Start(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stop stops every router, continuing past failures
func (c *Collection) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transition(StateStopped, func() error {
		var errs []error
		for _, r := range *c.routers.Load() {
			if r.State() != StateStarted {
				continue
			}
			if err := r.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return stderrors.Join(errs...)
	})
}

// Dispose disposes every router
func (c *Collection) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateStarted {
		c.state.Store(int32(StateStopped))
	}
	return c.transition(StateDisposed, func() error {
		var errs []error
		for _, r := range *c.routers.Load() {
			if err := r.Dispose(); err != nil {
				errs = append(errs, fmt.Errorf("dispose %s: %w", r.Name(), err))
			}
		}
		return stderrors.Join(errs...)
	})
}

// Process routes event through the collection. When no router matches, the
// catch-all handles it; without one the drop is logged and event is returned
// unchanged.
func (c *Collection) Process(ctx context.Context, event *message.Event) (*message.Event, error) {
	if state := c.State(); state != StateStarted {
		return nil, fmt.Errorf("%w: collection is %s", ErrNotStarted, state)
	}

	routers := *c.routers.Load()
	original := event.Message()

	var (
		matched bool
		results []*message.Message
	)
	for i, r := range routers {
		candidate := original
		// later routers in match-all mode still need the untouched original
		if c.matchAll && i < len(routers)-1 {
			cp, err := original.Clone()
			if err != nil {
				return nil, fmt.Errorf("router %s: %w", r.Name(), err)
			}
			candidate = cp
		}

		ok, err := r.IsMatch(candidate)
		if err != nil {
			return nil, fmt.Errorf("router %s: match: %w", r.Name(), err)
		}
		if !ok {
			continue
		}
		matched = true

		result, err := r.Route(ctx, event.WithMessage(candidate))
		if err != nil {
			return nil, err
		}
		if !c.matchAll {
			return result, nil
		}
		if !result.IsNoResult() && result.Message() != nil {
			results = append(results, result.Message())
		}
	}

	if matched {
		if agg := Aggregate(results); agg != nil {
			return event.WithMessage(agg), nil
		}
		return message.NoResult(), nil
	}

	if c.catchAll != nil {
		return c.catchAll.Handle(ctx, event)
	}
	c.logger.Info("Message dropped, no router matched",
		logging.MessageID(original.ID()),
		logging.Int("routers", len(routers)),
	)
	return event, nil
}
