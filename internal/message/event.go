package message

import (
	"context"
	"maps"

	"outbound-router/internal/common/logging"
)

// Event is one routing invocation: the current message plus invocation
// variables and the caller's exchange pattern. Events are copied, never mutated,
// so a child event can be handed to another goroutine safely.
type Event struct {
	message     *Message
	variables   map[string]any
	synchronous bool
	replyTo     string
	noResult    bool
}

// EventOption configures a new Event
type EventOption func(*Event)

// Synchronous sets whether the caller waits for a response
func Synchronous(sync bool) EventOption {
	return func(e *Event) { e.synchronous = sync }
}

// WithReplyTo records where asynchronous replies should go
func WithReplyTo(replyTo string) EventOption {
	return func(e *Event) { e.replyTo = replyTo }
}

// WithVariables seeds the invocation variables
func WithVariables(vars map[string]any) EventOption {
	return func(e *Event) { e.variables = maps.Clone(vars) }
}

// NewEvent creates a synchronous event for msg
func NewEvent(msg *Message, opts ...EventOption) *Event {
	e := &Event{message: msg, synchronous: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NoResult returns the explicit "nothing to return" signal. It is not an error.
func NoResult() *Event {
	return &Event{noResult: true}
}

// IsNoResult reports whether e is the no-result signal. A nil event counts.
func (e *Event) IsNoResult() bool {
	return e == nil || e.noResult
}

// Message returns the current message
func (e *Event) Message() *Message { return e.message }

// Synchronous reports whether the caller waits for a response
func (e *Event) Synchronous() bool { return e.synchronous }

// ReplyTo returns the reply destination requested by the caller
func (e *Event) ReplyTo() string { return e.replyTo }

// Variable returns an invocation variable
func (e *Event) Variable(name string) (any, bool) {
	v, ok := e.variables[name]
	return v, ok
}

// Variables returns a copy of all invocation variables
func (e *Event) Variables() map[string]any {
	return maps.Clone(e.variables)
}

// WithMessage returns a copy of e carrying msg
func (e *Event) WithMessage(msg *Message) *Event {
	cp := *e
	cp.message = msg
	cp.noResult = false
	return &cp
}

// WithVariable returns a copy of e with name set
func (e *Event) WithVariable(name string, value any) *Event {
	cp := *e
	cp.variables = maps.Clone(e.variables)
	if cp.variables == nil {
		cp.variables = make(map[string]any)
	}
	cp.variables[name] = value
	return &cp
}

type eventKey struct{}

// ContextWithEvent stores e in ctx and tags the context's log fields with the
// message and correlation ids
func ContextWithEvent(ctx context.Context, e *Event) context.Context {
	ctx = context.WithValue(ctx, eventKey{}, e)
	if e == nil || e.message == nil {
		return ctx
	}
	fields := []logging.Field{logging.MessageID(e.message.ID())}
	if c := e.message.Correlation(); c.HasID() {
		fields = append(fields, logging.CorrelationID(c.ID()))
	}
	return logging.ContextWithFields(ctx, fields...)
}

// EventFromContext returns the event stored by ContextWithEvent
func EventFromContext(ctx context.Context) (*Event, bool) {
	e, ok := ctx.Value(eventKey{}).(*Event)
	return e, ok && e != nil
}
