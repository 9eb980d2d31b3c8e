// Package brokers defines the publish side of message brokers. Routers reach
// brokers through broker-backed destinations, which are fire-and-forget.
package brokers

import (
	"context"
	"time"
)

// Header names used to carry correlation metadata on the wire
const (
	HeaderCorrelationID        = "correlation_id"
	HeaderCorrelationGroupSize = "correlation_group_size"
	HeaderCorrelationSequence  = "correlation_sequence"
	HeaderReplyTo              = "reply_to"
)

// Broker publishes messages to one backend
type Broker interface {
	Name() string
	Publish(ctx context.Context, message *Message) error
	Health(ctx context.Context) error
	Close() error
}

// BrokerConfig is the configuration of one broker type
type BrokerConfig interface {
	Validate() error
	GetConnectionString() string
	GetType() string
}

// Message is the broker-neutral wire message
type Message struct {
	// Topic is the queue, stream or topic name; brokers fall back to their
	// configured default when it is empty
	Topic       string
	RoutingKey  string
	Headers     map[string]string
	Body        []byte
	ContentType string
	Timestamp   time.Time
	MessageID   string
}

// Factory builds brokers of one type
type Factory interface {
	GetType() string
	// NewConfig returns an empty config for decoding
	NewConfig() BrokerConfig
	Create(config BrokerConfig) (Broker, error)
}
