package destination

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"outbound-router/internal/brokers"
	"outbound-router/internal/message"
)

// Encode turns a payload into bytes and a content type. Byte slices and
// strings are sent as they are, composite payloads as a JSON array of their
// part payloads, and everything else as JSON.
func Encode(payload any) ([]byte, string, error) {
	switch p := payload.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return p, "application/octet-stream", nil
	case string:
		return []byte(p), "text/plain; charset=utf-8", nil
	case io.Reader:
		b, err := io.ReadAll(p)
		if err != nil {
			return nil, "", fmt.Errorf("reading streamed payload: %w", err)
		}
		return b, "application/octet-stream", nil
	case message.Collection:
		return encodeJSON(p.Payloads())
	default:
		return encodeJSON(p)
	}
}

func encodeJSON(v any) ([]byte, string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encoding payload as JSON: %w", err)
	}
	return b, "application/json", nil
}

// CorrelationHeaders returns the wire headers carrying msg's correlation and
// reply-to address. Unset values are omitted.
func CorrelationHeaders(msg *message.Message) map[string]string {
	headers := make(map[string]string, 4)
	c := msg.Correlation()
	if c.HasID() {
		headers[brokers.HeaderCorrelationID] = c.ID()
	}
	if c.HasGroupSize() || c.IsGroupSizeUnknown() {
		headers[brokers.HeaderCorrelationGroupSize] = strconv.Itoa(c.GroupSize())
	}
	if c.HasSequenceNumber() {
		headers[brokers.HeaderCorrelationSequence] = strconv.Itoa(c.SequenceNumber())
	}
	if replyTo := msg.ReplyTo(); replyTo != "" {
		headers[brokers.HeaderReplyTo] = replyTo
	}
	return headers
}
