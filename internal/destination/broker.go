package destination

import (
	"context"
	"fmt"
	"time"

	"outbound-router/internal/brokers"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

// BrokerOptions selects where a broker destination publishes
type BrokerOptions struct {
	Topic      string `json:"topic"`
	RoutingKey string `json:"routing_key"`
}

// Broker publishes messages to a message broker. Publishing is
// fire-and-forget, so it never yields a response.
type Broker struct {
	name    string
	broker  brokers.Broker
	options BrokerOptions
	logger  logging.Logger
}

// NewBroker wraps an already connected broker. The destination owns the
// broker and closes it on Dispose.
func NewBroker(name string, broker brokers.Broker, options BrokerOptions) *Broker {
	return &Broker{
		name:    name,
		broker:  broker,
		options: options,
		logger: logging.GetGlobalLogger().WithFields(
			logging.Destination(name),
			logging.String("broker", broker.Name()),
		),
	}
}

func (b *Broker) Name() string { return b.name }

func (b *Broker) YieldsResponse() bool { return false }

// Start verifies the broker is reachable
func (b *Broker) Start(ctx context.Context) error {
	if err := b.broker.Health(ctx); err != nil {
		return fmt.Errorf("destination %s: %w", b.name, err)
	}
	return nil
}

// Dispose closes the broker connection
func (b *Broker) Dispose() error {
	return b.broker.Close()
}

// Send publishes msg with its correlation as headers. String-valued outbound
// properties are carried as headers too.
func (b *Broker) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	body, contentType, err := Encode(msg.Payload())
	if err != nil {
		return nil, errors.ValidationError(err.Error()).WithCause(err)
	}

	headers := CorrelationHeaders(msg)
	for key, value := range msg.OutboundProperties() {
		if s, ok := value.(string); ok {
			if _, reserved := headers[key]; !reserved {
				headers[key] = s
			}
		}
	}

	err = b.broker.Publish(ctx, &brokers.Message{
		Topic:       b.options.Topic,
		RoutingKey:  b.options.RoutingKey,
		Headers:     headers,
		Body:        body,
		ContentType: contentType,
		Timestamp:   time.Now(),
		MessageID:   msg.ID(),
	})
	if err != nil {
		return nil, err
	}

	if awaitResponse {
		b.logger.Debug("Broker destination does not yield responses", logging.MessageID(msg.ID()))
	}
	return nil, nil
}
