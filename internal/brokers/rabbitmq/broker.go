// Package rabbitmq publishes routed messages over AMQP 0-9-1
package rabbitmq

import (
	"context"
	"sync"

	"github.com/streadway/amqp"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// Broker publishes to an exchange. AMQP channels are not safe for concurrent
// publishing, so Publish holds mu.
type Broker struct {
	*base.BaseBroker
	config *Config
	conn   *amqp.Connection
	ch     Channel
	mu     sync.Mutex
}

// NewBroker dials the server, opens a channel and declares the queue if set
func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("rabbitmq", config)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, errors.ConnectionError("failed to connect to RabbitMQ", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.ConnectionError("failed to open RabbitMQ channel", err)
	}

	b, err := newBroker(baseBroker, config, ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	b.conn = conn
	return b, nil
}

// NewBrokerWithChannel builds a broker over an existing channel
func NewBrokerWithChannel(config *Config, ch Channel) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("rabbitmq", config)
	if err != nil {
		return nil, err
	}
	return newBroker(baseBroker, config, ch)
}

func newBroker(baseBroker *base.BaseBroker, config *Config, ch Channel) (*Broker, error) {
	if config.Queue != "" {
		if _, err := ch.QueueDeclare(config.Queue, config.Durable, false, false, false, nil); err != nil {
			return nil, errors.ConnectionError("failed to declare queue "+config.Queue, err)
		}
	}
	return &Broker{BaseBroker: baseBroker, config: config, ch: ch}, nil
}

func (b *Broker) routingKey(message *brokers.Message) string {
	switch {
	case message.RoutingKey != "":
		return message.RoutingKey
	case message.Topic != "":
		return message.Topic
	case b.config.RoutingKey != "":
		return b.config.RoutingKey
	default:
		return b.config.Queue
	}
}

// Publish sends the message; headers become AMQP headers and the
// correlation id header becomes the AMQP correlation id
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := base.ValidateMessage(message); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := amqp.Table{}
	for k, v := range message.Headers {
		headers[k] = v
	}

	publishing := amqp.Publishing{
		Headers:       headers,
		ContentType:   message.ContentType,
		Body:          message.Body,
		MessageId:     message.MessageID,
		Timestamp:     message.Timestamp,
		CorrelationId: message.Headers[brokers.HeaderCorrelationID],
		ReplyTo:       message.Headers[brokers.HeaderReplyTo],
		DeliveryMode:  amqp.Transient,
	}
	if b.config.Durable {
		publishing.DeliveryMode = amqp.Persistent
	}

	key := b.routingKey(message)

	b.mu.Lock()
	err := b.ch.Publish(b.config.Exchange, key, b.config.Mandatory, false, publishing)
	b.mu.Unlock()
	if err != nil {
		return errors.ConnectionError("failed to publish message to RabbitMQ", err)
	}

	b.GetLogger().Debug("Message published to RabbitMQ",
		logging.Field{Key: "exchange", Value: b.config.Exchange},
		logging.Field{Key: "routing_key", Value: key},
		logging.MessageID(message.MessageID),
	)
	return nil
}

// Health reports whether the connection is still open
func (b *Broker) Health(ctx context.Context) error {
	if b.conn != nil && b.conn.IsClosed() {
		return errors.ConnectionError("RabbitMQ connection is closed", nil)
	}
	return nil
}

// Close closes the channel and the connection
func (b *Broker) Close() error {
	err := b.ch.Close()
	if b.conn != nil {
		if cerr := b.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
