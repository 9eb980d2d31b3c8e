package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// Multicast sends the same message to every route and gathers the
// responses. Failures are logged and skipped; the invocation only fails when
// every attempted route failed. The continue predicate can end the fan-out
// early.
type Multicast struct {
	*base
	parallel bool
}

// NewMulticast creates a multicast router that calls its routes one after
// another
func NewMulticast(name string, routes []destination.Destination, opts ...Option) (*Multicast, error) {
	return newMulticast(name, KindMulticast, false, routes, opts)
}

// NewScatterGather creates a multicast router that calls its routes in
// parallel. WithMaxConcurrency bounds the number of sends in flight.
func NewScatterGather(name string, routes []destination.Destination, opts ...Option) (*Multicast, error) {
	return newMulticast(name, KindScatterGather, true, routes, opts)
}

func newMulticast(name, kind string, parallel bool, routes []destination.Destination, opts []Option) (*Multicast, error) {
	b, err := newBase(name, kind, routes, opts)
	if err != nil {
		return nil, err
	}
	b.validateRoutes = requireRoutes
	return &Multicast{base: b, parallel: parallel}, nil
}

// outcome is the result of one route in a fan-out
type outcome struct {
	resp      *message.Message
	err       error
	attempted bool
}

func (r *Multicast) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}
	routes := r.snapshot()
	if len(routes) == 0 {
		return nil, wrapRoutingError(r.name, nil, event, ErrNoRoutes)
	}

	original := event.Message()
	st := newStamp(r.cfg.Correlation, r.cfg.Mapper, original, r.cfg.Sequential)
	msgs := make([]*message.Message, len(routes))
	for i := range routes {
		cp, err := original.Clone()
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", r.name, err)
		}
		msgs[i] = st.apply(cp, len(routes), i+1)
	}

	var outcomes []outcome
	if r.parallel {
		outcomes = r.scatter(ctx, event, routes, msgs)
	} else {
		outcomes = r.sequential(ctx, event, routes, msgs)
	}
	return r.gather(event, routes, outcomes)
}

func (r *Multicast) proceed(resp *message.Message, err error) bool {
	if r.cfg.Continue == nil {
		return true
	}
	return r.cfg.Continue(resp, err)
}

func (r *Multicast) sequential(ctx context.Context, event *message.Event, routes []destination.Destination, msgs []*message.Message) []outcome {
	await := r.awaitResponse(event)
	outcomes := make([]outcome, len(routes))
	for i, d := range routes {
		resp, err := r.send(ctx, event, msgs[i], d, await)
		outcomes[i] = outcome{resp: resp, err: err, attempted: true}
		if !r.proceed(resp, err) {
			break
		}
	}
	return outcomes
}

func (r *Multicast) scatter(ctx context.Context, event *message.Event, routes []destination.Destination, msgs []*message.Message) []outcome {
	await := r.awaitResponse(event)
	outcomes := make([]outcome, len(routes))

	var stopped atomic.Bool
	var g errgroup.Group
	if r.cfg.MaxConcurrency > 0 {
		g.SetLimit(r.cfg.MaxConcurrency)
	}
	for i, d := range routes {
		g.Go(func() error {
			if stopped.Load() {
				return nil
			}
			resp, err := r.send(ctx, event, msgs[i], d, await)
			outcomes[i] = outcome{resp: resp, err: err, attempted: true}
			if !r.proceed(resp, err) {
				stopped.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// gather keeps responses in route order and fails only if every attempted
// route failed
func (r *Multicast) gather(event *message.Event, routes []destination.Destination, outcomes []outcome) (*message.Event, error) {
	var (
		responses []*message.Message
		errs      []error
		attempted int
	)
	for i, o := range outcomes {
		if !o.attempted {
			continue
		}
		attempted++
		if o.err != nil {
			r.logger.Warn("Multicast route failed",
				logging.Destination(routes[i].Name()),
				logging.Err(o.err),
			)
			errs = append(errs, o.err)
			continue
		}
		if o.resp != nil {
			responses = append(responses, o.resp)
		}
	}

	if attempted > 0 && len(errs) == attempted {
		return nil, &RoutingError{
			Router: r.name,
			Event:  event,
			Err:    fmt.Errorf("%w: %w", ErrAllDestinationsFailed, stderrors.Join(errs...)),
		}
	}
	return r.result(event, responses), nil
}
