package routing

import (
	"fmt"
	"strings"

	"outbound-router/internal/message"
)

// CorrelationMode controls whether a router stamps correlation ids on the
// parts it sends
type CorrelationMode string

const (
	// CorrelationIfNotSet keeps an existing id and generates one otherwise
	CorrelationIfNotSet CorrelationMode = "IF_NOT_SET"
	// CorrelationAlways overwrites any existing id
	CorrelationAlways CorrelationMode = "ALWAYS"
	// CorrelationNever leaves correlation untouched
	CorrelationNever CorrelationMode = "NEVER"
)

// ParseCorrelationMode parses a mode name case-insensitively. An empty string
// is IF_NOT_SET.
func ParseCorrelationMode(s string) (CorrelationMode, error) {
	switch mode := CorrelationMode(strings.ToUpper(strings.TrimSpace(s))); mode {
	case "":
		return CorrelationIfNotSet, nil
	case CorrelationIfNotSet, CorrelationAlways, CorrelationNever:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown correlation mode %q", s)
	}
}

// CorrelationIDMapper derives the correlation id for the parts of a message
type CorrelationIDMapper interface {
	CorrelationID(msg *message.Message) string
}

// CorrelationIDFunc adapts a function into a CorrelationIDMapper
type CorrelationIDFunc func(msg *message.Message) string

func (f CorrelationIDFunc) CorrelationID(msg *message.Message) string { return f(msg) }

// MessageIDMapper uses the original message id as the correlation id
var MessageIDMapper CorrelationIDFunc = func(msg *message.Message) string { return msg.ID() }

// stamp applies the correlation policy to the parts of one routing invocation.
// The base id is computed once from the original message.
type stamp struct {
	mode       CorrelationMode
	id         string
	sequential bool
}

func newStamp(mode CorrelationMode, mapper CorrelationIDMapper, original *message.Message, sequential bool) stamp {
	st := stamp{mode: mode, sequential: sequential}
	if mode != CorrelationNever {
		st.id = mapper.CorrelationID(original)
	}
	return st
}

// apply stamps part seq (1-based) of a group of groupSize. A groupSize of
// message.UnknownGroupSize is recorded as is.
func (st stamp) apply(part *message.Message, groupSize, seq int) *message.Message {
	if st.mode == CorrelationNever {
		return part
	}

	current := part.Correlation()
	id := current.ID()
	if st.mode == CorrelationAlways || !current.HasID() {
		id = st.id
		if st.sequential {
			id = fmt.Sprintf("%s-%d", st.id, seq)
		}
	}
	return part.WithCorrelation(message.NewCorrelation(id, groupSize, seq))
}

// single stamps a message that is not part of a split. Only the id changes.
func (st stamp) single(msg *message.Message) *message.Message {
	if st.mode == CorrelationNever {
		return msg
	}
	current := msg.Correlation()
	if st.mode == CorrelationIfNotSet && current.HasID() {
		return msg
	}
	return msg.WithCorrelation(current.WithID(st.id))
}
