package destination

import (
	"context"
	"errors"

	"outbound-router/internal/message"
)

// wrapper forwards every capability to the wrapped destination so that
// decorating a destination never hides its lifecycle
type wrapper struct {
	inner Destination
}

func (w wrapper) Name() string { return w.inner.Name() }

func (w wrapper) Initialise() error { return Initialise(w.inner) }

func (w wrapper) Start(ctx context.Context) error { return Start(ctx, w.inner) }

func (w wrapper) Stop(ctx context.Context) error { return Stop(ctx, w.inner) }

func (w wrapper) Dispose() error { return Dispose(w.inner) }

func (w wrapper) Accept(msg *message.Message) bool { return Accepts(w.inner, msg) }

func (w wrapper) YieldsResponse() bool { return YieldsResponse(w.inner) }

// Unwrap returns the decorated destination
func (w wrapper) Unwrap() Destination { return w.inner }

// Unwrap strips every decorator from d
func Unwrap(d Destination) Destination {
	for {
		u, ok := d.(interface{ Unwrap() Destination })
		if !ok {
			return d
		}
		d = u.Unwrap()
	}
}

// DisposeAll disposes every destination and joins the errors
func DisposeAll(dests ...Destination) error {
	var errs []error
	for _, d := range dests {
		if err := Dispose(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
