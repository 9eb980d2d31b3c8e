package routing

import (
	"context"

	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// PassThrough forwards the event to its single route. Without a route the
// event is returned unchanged.
type PassThrough struct {
	*base
}

// NewPassThrough creates a pass-through router with at most one route
func NewPassThrough(name string, routes []destination.Destination, opts ...Option) (*PassThrough, error) {
	b, err := newBase(name, KindPassThrough, routes, opts)
	if err != nil {
		return nil, err
	}
	b.validateRoutes = func(routes []destination.Destination) error {
		if len(routes) > 1 {
			return ErrTooManyRoutes
		}
		return nil
	}
	if err := b.checkRoutes(routes); err != nil {
		return nil, err
	}
	return &PassThrough{base: b}, nil
}

func (r *PassThrough) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}
	routes := r.snapshot()
	if len(routes) == 0 {
		return event, nil
	}

	msg := newStamp(r.cfg.Correlation, r.cfg.Mapper, event.Message(), false).single(event.Message())
	resp, err := r.send(ctx, event, msg, routes[0], r.awaitResponse(event))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return message.NoResult(), nil
	}
	return event.WithMessage(resp), nil
}
