package routing

import "outbound-router/internal/message"

// Aggregate combines the responses of one invocation. Nil entries are
// dropped; no responses give nil, one gives itself, more give a composite in
// the order the responses were produced.
func Aggregate(responses []*message.Message) *message.Message {
	kept := make([]*message.Message, 0, len(responses))
	for _, r := range responses {
		if r != nil {
			kept = append(kept, r)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return message.NewCollection(kept)
	}
}
