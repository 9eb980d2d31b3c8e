// Package message defines the envelope that flows through routers: a payload,
// scoped properties, correlation metadata, and the per-invocation Event.
package message

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Outbound property names read or written by routers
const (
	PropertyReplyTo = "reply_to"
	PropertyTimeout = "timeout"
)

// ErrNotCloneable is returned when a consumable payload would have to be copied
var ErrNotCloneable = errors.New("message payload is consumable and cannot be cloned")

// Properties is a named property scope
type Properties map[string]any

// Clone returns a shallow copy; nil stays nil
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Message is an immutable-by-convention envelope. Every method that changes
// something returns a new *Message.
type Message struct {
	id          string
	payload     any
	inbound     Properties
	outbound    Properties
	correlation Correlation
	exception   error
}

// Option configures a new Message
type Option func(*Message)

// WithID overrides the generated message id
func WithID(id string) Option {
	return func(m *Message) { m.id = id }
}

// WithInbound sets the inbound property scope
func WithInbound(props Properties) Option {
	return func(m *Message) { m.inbound = props.Clone() }
}

// WithOutbound sets the outbound property scope
func WithOutbound(props Properties) Option {
	return func(m *Message) { m.outbound = props.Clone() }
}

// WithCorrelation sets the correlation
func WithCorrelation(c Correlation) Option {
	return func(m *Message) { m.correlation = c }
}

// WithException marks the message as carrying an error payload
func WithException(err error) Option {
	return func(m *Message) { m.exception = err }
}

// New creates a message with a fresh id
func New(payload any, opts ...Option) *Message {
	m := &Message{
		id:      uuid.NewString(),
		payload: payload,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewException creates a response message whose error payload is err
func NewException(err error, opts ...Option) *Message {
	return New(nil, append(opts, WithException(err))...)
}

// ID returns the unique message id
func (m *Message) ID() string { return m.id }

// Payload returns the payload value
func (m *Message) Payload() any { return m.payload }

// Correlation returns the correlation metadata
func (m *Message) Correlation() Correlation { return m.correlation }

// Exception returns the error payload, if any
func (m *Message) Exception() error { return m.exception }

// HasException reports whether the message carries an error payload
func (m *Message) HasException() bool { return m.exception != nil }

// IsNullPayload reports whether the payload is nil
func (m *Message) IsNullPayload() bool { return m.payload == nil }

// Inbound returns an inbound property
func (m *Message) Inbound(key string) (any, bool) {
	v, ok := m.inbound[key]
	return v, ok
}

// Outbound returns an outbound property
func (m *Message) Outbound(key string) (any, bool) {
	v, ok := m.outbound[key]
	return v, ok
}

// Property looks a key up in the outbound scope, then the inbound scope
func (m *Message) Property(key string) (any, bool) {
	if v, ok := m.outbound[key]; ok {
		return v, true
	}
	return m.Inbound(key)
}

// InboundProperties returns a copy of the inbound scope
func (m *Message) InboundProperties() Properties { return m.inbound.Clone() }

// OutboundProperties returns a copy of the outbound scope
func (m *Message) OutboundProperties() Properties { return m.outbound.Clone() }

// Derive re-wraps payload in a new message. Outbound properties and correlation
// are carried forward; inbound properties are not.
func (m *Message) Derive(payload any) *Message {
	return &Message{
		id:          uuid.NewString(),
		payload:     payload,
		outbound:    m.outbound.Clone(),
		correlation: m.correlation,
	}
}

// WithCorrelation returns a copy of m carrying c
func (m *Message) WithCorrelation(c Correlation) *Message {
	cp := m.shallowCopy()
	cp.correlation = c
	return cp
}

// WithOutboundProperty returns a copy of m with key set in the outbound scope
func (m *Message) WithOutboundProperty(key string, value any) *Message {
	cp := m.shallowCopy()
	cp.outbound = m.outbound.Clone()
	if cp.outbound == nil {
		cp.outbound = Properties{}
	}
	cp.outbound[key] = value
	return cp
}

// WithPayload returns a copy of m with the same id and a new payload
func (m *Message) WithPayload(payload any) *Message {
	cp := m.shallowCopy()
	cp.payload = payload
	return cp
}

// IsConsumable reports whether reading the payload would consume it
func (m *Message) IsConsumable() bool {
	_, ok := m.payload.(io.Reader)
	return ok
}

// Clone copies the message so later property changes on either side do not
// leak. Streaming payloads cannot be read twice, so they are refused.
func (m *Message) Clone() (*Message, error) {
	if m.IsConsumable() {
		return nil, fmt.Errorf("%w: %T", ErrNotCloneable, m.payload)
	}
	cp := m.shallowCopy()
	cp.inbound = m.inbound.Clone()
	cp.outbound = m.outbound.Clone()
	if b, ok := m.payload.([]byte); ok {
		cp.payload = append([]byte(nil), b...)
	}
	return cp, nil
}

// ReplyTo returns the reply_to outbound property
func (m *Message) ReplyTo() string {
	v, _ := m.Outbound(PropertyReplyTo)
	s, _ := v.(string)
	return s
}

// Timeout reads the timeout outbound property. Integers and numeric strings are
// milliseconds; other strings use time.ParseDuration syntax.
func (m *Message) Timeout() (time.Duration, bool) {
	v, ok := m.Outbound(PropertyTimeout)
	if !ok {
		return 0, false
	}
	var d time.Duration
	switch t := v.(type) {
	case time.Duration:
		d = t
	case int:
		d = time.Duration(t) * time.Millisecond
	case int64:
		d = time.Duration(t) * time.Millisecond
	case float64:
		d = time.Duration(t * float64(time.Millisecond))
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			d = time.Duration(ms) * time.Millisecond
		} else if parsed, err := time.ParseDuration(t); err == nil {
			d = parsed
		} else {
			return 0, false
		}
	default:
		return 0, false
	}
	return d, d > 0
}

func (m *Message) shallowCopy() *Message {
	cp := *m
	return &cp
}

func (m *Message) String() string {
	return fmt.Sprintf("message{id=%s, payload=%T, %s}", m.id, m.payload, m.correlation)
}
