package routing

import (
	"context"
	stderrors "errors"
	"fmt"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// ExceptionFallback tries its destinations in order and returns the first
// response that carries no exception. A destination error and an exception
// response both count as failure.
type ExceptionFallback struct {
	*base
	recipients RecipientsFunc
	resolver   *recipientResolver
}

// NewExceptionFallback creates a fallback router over static routes. Every
// route but the last must be able to return a response.
func NewExceptionFallback(name string, routes []destination.Destination, opts ...Option) (*ExceptionFallback, error) {
	b, err := newBase(name, KindExceptionFallback, routes, opts)
	if err != nil {
		return nil, err
	}
	b.validateRoutes = validateFallbackRoutes
	return &ExceptionFallback{base: b}, nil
}

// NewDynamicExceptionFallback creates a fallback router whose candidates are
// resolved per message, in recipient order
func NewDynamicExceptionFallback(name string, cfg RecipientListConfig, opts ...Option) (*ExceptionFallback, error) {
	if cfg.Recipients == nil || cfg.Resolver == nil {
		return nil, apperrors.ConfigErrorf("router %s: recipients and resolver are required", name)
	}
	b, err := newBase(name, KindExceptionFallback, nil, opts)
	if err != nil {
		return nil, err
	}
	return &ExceptionFallback{
		base:       b,
		recipients: cfg.Recipients,
		resolver:   newRecipientResolver(cfg.Resolver, cfg.Cache, cfg.CacheTTL),
	}, nil
}

func validateFallbackRoutes(routes []destination.Destination) error {
	if len(routes) == 0 {
		return ErrNoRoutes
	}
	for _, d := range routes[:len(routes)-1] {
		if !destination.YieldsResponse(d) {
			return fmt.Errorf("destination %s cannot return a response and is not the last route", d.Name())
		}
	}
	return nil
}

func (r *ExceptionFallback) candidates(ctx context.Context, event *message.Event) ([]destination.Destination, error) {
	if r.recipients == nil {
		return r.snapshot(), nil
	}
	names, err := r.recipients(ctx, event)
	if err != nil {
		return nil, err
	}
	dests, err := r.resolver.resolveAll(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := validateFallbackRoutes(dests); err != nil {
		return nil, err
	}
	return dests, nil
}

func (r *ExceptionFallback) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}
	dests, err := r.candidates(ctx, event)
	if err != nil {
		return nil, wrapRoutingError(r.name, nil, event, err)
	}
	if len(dests) == 0 {
		return nil, wrapRoutingError(r.name, nil, event, ErrNoRoutes)
	}

	original := event.Message()
	msg := newStamp(r.cfg.Correlation, r.cfg.Mapper, original, false).single(original)
	last := len(dests) - 1

	var errs []error
	for i, d := range dests {
		await := true
		if i == last {
			await = r.awaitResponse(event)
		}

		attempt := msg
		if i < last {
			if attempt, err = msg.Clone(); err != nil {
				return nil, fmt.Errorf("router %s: %w", r.name, err)
			}
		}

		resp, err := r.send(ctx, event, attempt, d, await)
		switch {
		case err != nil:
			errs = append(errs, err)
		case resp != nil && resp.HasException():
			errs = append(errs, fmt.Errorf("destination %s: %w", d.Name(), resp.Exception()))
		default:
			if len(errs) > 0 {
				r.logger.Info("Fallback destination succeeded",
					logging.Destination(d.Name()),
					logging.Int("attempt", i+1),
				)
			}
			if resp == nil {
				return message.NoResult(), nil
			}
			return event.WithMessage(resp), nil
		}
		r.logger.Warn("Destination failed, trying next",
			logging.Destination(d.Name()),
			logging.Int("attempt", i+1),
			logging.Err(errs[len(errs)-1]),
		)
	}

	return nil, &RoutingError{
		Router:      r.name,
		Destination: dests[last].Name(),
		Event:       event,
		Err:         fmt.Errorf("%w: %w", ErrAllDestinationsFailed, stderrors.Join(errs...)),
	}
}
