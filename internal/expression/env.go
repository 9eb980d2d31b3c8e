package expression

import (
	"outbound-router/internal/message"
)

// Env is the environment an expression sees. Byte payloads are exposed as
// strings.
//
//	payload                  the message payload
//	id, correlationId        message and correlation ids
//	groupSize, sequence      correlation group size and sequence number (0 when unset)
//	inbound, outbound        property scopes
//	props                    outbound properties over inbound ones
//	vars                     event variables, when evaluated against an event
type Env struct {
	Payload       any            `expr:"payload"`
	ID            string         `expr:"id"`
	CorrelationID string         `expr:"correlationId"`
	GroupSize     int            `expr:"groupSize"`
	Sequence      int            `expr:"sequence"`
	Inbound       map[string]any `expr:"inbound"`
	Outbound      map[string]any `expr:"outbound"`
	Props         map[string]any `expr:"props"`
	Vars          map[string]any `expr:"vars"`
}

// NewEnv builds the environment for msg
func NewEnv(msg *message.Message, vars map[string]any) Env {
	payload := msg.Payload()
	if b, ok := payload.([]byte); ok {
		payload = string(b)
	}

	inbound := map[string]any(msg.InboundProperties())
	outbound := map[string]any(msg.OutboundProperties())
	props := make(map[string]any, len(inbound)+len(outbound))
	for k, v := range inbound {
		props[k] = v
	}
	for k, v := range outbound {
		props[k] = v
	}

	c := msg.Correlation()
	return Env{
		Payload:       payload,
		ID:            msg.ID(),
		CorrelationID: c.ID(),
		GroupSize:     c.GroupSize(),
		Sequence:      c.SequenceNumber(),
		Inbound:       inbound,
		Outbound:      outbound,
		Props:         props,
		Vars:          vars,
	}
}
