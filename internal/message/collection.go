package message

import "github.com/google/uuid"

// Collection is the payload of a composite message built from several results
type Collection []*Message

// Payloads returns the payload of every part, in order
func (c Collection) Payloads() []any {
	out := make([]any, len(c))
	for i, m := range c {
		if m != nil {
			out[i] = m.Payload()
		}
	}
	return out
}

// NewCollection wraps parts, preserving order, in one composite message. The
// composite inherits the correlation id of the first part.
func NewCollection(parts []*Message) *Message {
	cp := make(Collection, len(parts))
	copy(cp, parts)

	m := &Message{id: uuid.NewString(), payload: cp}
	if len(cp) > 0 && cp[0] != nil {
		m.correlation = NewCorrelation(cp[0].Correlation().ID(), 0, 0)
	}
	return m
}

// Parts returns the parts when m is a composite
func (m *Message) Parts() (Collection, bool) {
	c, ok := m.payload.(Collection)
	return c, ok
}
