package routing

import (
	"context"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
	"outbound-router/internal/transform"
)

// TransformRouter replaces the payload using a Transformer. With a route the
// transformed message is forwarded; without one it is returned.
type TransformRouter struct {
	*base
	transformer transform.Transformer
}

// NewTransformRouter creates a transform router with at most one route
func NewTransformRouter(name string, t transform.Transformer, routes []destination.Destination, opts ...Option) (*TransformRouter, error) {
	if t == nil {
		return nil, apperrors.ConfigErrorf("router %s: transformer is required", name)
	}
	b, err := newBase(name, KindTransform, routes, opts)
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
	return &TransformRouter{base: b, transformer: t}, nil
}

func (r *TransformRouter) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}

	msg := event.Message()
	payload, err := r.transformer.Transform(message.ContextWithEvent(ctx, event), msg)
	if err != nil {
		return nil, wrapRoutingError(r.name, nil, event, err)
	}
	transformed := msg.WithPayload(payload)

	routes := r.snapshot()
	if len(routes) == 0 {
		return event.WithMessage(transformed), nil
	}
	resp, err := r.send(ctx, event, transformed, routes[0], r.awaitResponse(event))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return message.NoResult(), nil
	}
	return event.WithMessage(resp), nil
}
