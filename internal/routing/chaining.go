package routing

import (
	"context"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// Chaining threads one message through its routes in order: each route gets
// the previous route's response. Every route but the last is called
// synchronously.
type Chaining struct {
	*base
}

// NewChaining creates a chaining router
func NewChaining(name string, routes []destination.Destination, opts ...Option) (*Chaining, error) {
	b, err := newBase(name, KindChaining, routes, opts)
	if err != nil {
		return nil, err
	}
	b.validateRoutes = requireRoutes
	return &Chaining{base: b}, nil
}

func (r *Chaining) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}
	routes := r.snapshot()
	if len(routes) == 0 {
		return nil, wrapRoutingError(r.name, nil, event, ErrNoRoutes)
	}

	original := event.Message()
	msg := newStamp(r.cfg.Correlation, r.cfg.Mapper, original, false).single(original)
	last := len(routes) - 1

	for i, d := range routes {
		await := true
		if i == last {
			await = r.awaitResponse(event)
		}

		resp, err := r.send(ctx, event, msg, d, await)
		if err != nil {
			return nil, err
		}
		if i == last {
			if resp == nil {
				return message.NoResult(), nil
			}
			return event.WithMessage(resp), nil
		}
		if resp == nil || resp.IsNullPayload() {
			r.logger.Debug("Chain stopped early on empty response",
				logging.Destination(d.Name()),
				logging.Int("step", i+1),
			)
			if resp == nil {
				return message.NoResult(), nil
			}
			return event.WithMessage(resp), nil
		}
		msg = carryForward(msg, resp)
	}
	return message.NoResult(), nil
}

// carryForward copies correlation and the reply destination from the
// previous hop onto a response that lacks them
func carryForward(prev, next *message.Message) *message.Message {
	if !next.Correlation().HasID() {
		next = next.WithCorrelation(prev.Correlation())
	}
	if replyTo := prev.ReplyTo(); replyTo != "" && next.ReplyTo() == "" {
		next = next.WithOutboundProperty(message.PropertyReplyTo, replyTo)
	}
	return next
}
