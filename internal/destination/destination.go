// Package destination defines the targets routers dispatch to. A Destination
// is an opaque transport call; optional capabilities (lifecycle, filtering,
// response semantics) are declared by implementing the small interfaces below
// and discovered with type assertions.
package destination

import (
	"context"

	"outbound-router/internal/message"
)

// Destination sends a message and, when awaitResponse is true, returns the
// response. A nil response with a nil error means "no response".
type Destination interface {
	Name() string
	Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error)
}

// Initialiser is implemented by destinations that validate or allocate on initialise
type Initialiser interface {
	Initialise() error
}

// Startable is implemented by destinations that connect on start
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable is implemented by destinations that disconnect on stop
type Stoppable interface {
	Stop(ctx context.Context) error
}

// Disposable is implemented by destinations holding resources until disposal
type Disposable interface {
	Dispose() error
}

// Accepter is implemented by destinations guarded by a filter
type Accepter interface {
	Accept(msg *message.Message) bool
}

// Responder reports whether Send can return a response at all.
// Destinations that do not implement it are assumed to respond.
type Responder interface {
	YieldsResponse() bool
}

// Resolver turns a recipient (a destination name or address) into a Destination
type Resolver interface {
	Resolve(ctx context.Context, recipient string) (Destination, error)
}

// Accepts reports whether d accepts msg
func Accepts(d Destination, msg *message.Message) bool {
	if a, ok := d.(Accepter); ok {
		return a.Accept(msg)
	}
	return true
}

// YieldsResponse reports whether d can return a response
func YieldsResponse(d Destination) bool {
	if r, ok := d.(Responder); ok {
		return r.YieldsResponse()
	}
	return true
}

// Initialise applies the initialise transition if d supports it
func Initialise(d Destination) error {
	if i, ok := d.(Initialiser); ok {
		return i.Initialise()
	}
	return nil
}

// Start applies the start transition if d supports it
func Start(ctx context.Context, d Destination) error {
	if s, ok := d.(Startable); ok {
		return s.Start(ctx)
	}
	return nil
}

// Stop applies the stop transition if d supports it
func Stop(ctx context.Context, d Destination) error {
	if s, ok := d.(Stoppable); ok {
		return s.Stop(ctx)
	}
	return nil
}

// Dispose applies the dispose transition if d supports it
func Dispose(d Destination) error {
	if disp, ok := d.(Disposable); ok {
		return disp.Dispose()
	}
	return nil
}

// SendFunc is the signature of Destination.Send
type SendFunc func(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error)

// Func adapts a function into a Destination
type Func struct {
	name string
	fn   SendFunc
}

// NewFunc returns a named Destination backed by fn
func NewFunc(name string, fn SendFunc) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	return f.fn(ctx, msg, awaitResponse)
}
