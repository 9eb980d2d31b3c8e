// Package kafka publishes routed messages with the Confluent Kafka client
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// Producer is the part of *kafka.Producer the broker uses
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	Close()
}

var _ Producer = (*kafka.Producer)(nil)

// Broker produces to Kafka topics and waits for the delivery report
type Broker struct {
	*base.BaseBroker
	config   *Config
	producer Producer
}

// NewBroker creates the underlying producer
func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("kafka", config)
	if err != nil {
		return nil, err
	}

	kafkaConfig := kafka.ConfigMap{
		"bootstrap.servers": strings.Join(config.Brokers, ","),
		"client.id":         config.ClientID,
		"acks":              config.Acks,
	}
	if config.SecurityProtocol != "PLAINTEXT" {
		kafkaConfig["security.protocol"] = config.SecurityProtocol
	}
	if strings.HasPrefix(config.SecurityProtocol, "SASL_") {
		kafkaConfig["sasl.mechanism"] = config.SASLMechanism
		kafkaConfig["sasl.username"] = config.SASLUsername
		kafkaConfig["sasl.password"] = config.SASLPassword
	}

	producer, err := kafka.NewProducer(&kafkaConfig)
	if err != nil {
		return nil, errors.ConnectionError("failed to create Kafka producer", err)
	}

	return &Broker{BaseBroker: baseBroker, config: config, producer: producer}, nil
}

// NewBrokerWithProducer builds a broker over an existing producer
func NewBrokerWithProducer(config *Config, producer Producer) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("kafka", config)
	if err != nil {
		return nil, err
	}
	return &Broker{BaseBroker: baseBroker, config: config, producer: producer}, nil
}

// Publish produces the message and blocks until it is acknowledged, the
// context ends or the configured timeout passes. The correlation id is
// used as the record key so one group lands on one partition.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := base.ValidateMessage(message); err != nil {
		return err
	}

	topic := base.TopicOrDefault(message, b.config.Topic)
	kafkaMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Value:     message.Body,
		Timestamp: message.Timestamp,
	}
	if key := message.Headers[brokers.HeaderCorrelationID]; key != "" {
		kafkaMsg.Key = []byte(key)
	}

	headers := make([]kafka.Header, 0, len(message.Headers)+3)
	for key, value := range message.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	headers = append(headers, kafka.Header{Key: "message_id", Value: []byte(message.MessageID)})
	if message.RoutingKey != "" {
		headers = append(headers, kafka.Header{Key: "routing_key", Value: []byte(message.RoutingKey)})
	}
	if message.ContentType != "" {
		headers = append(headers, kafka.Header{Key: "content_type", Value: []byte(message.ContentType)})
	}
	kafkaMsg.Headers = headers

	deliveryChan := make(chan kafka.Event, 1)
	if err := b.producer.Produce(kafkaMsg, deliveryChan); err != nil {
		return errors.ConnectionError("failed to produce message", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return errors.InternalError(fmt.Sprintf("unexpected delivery event %T", e), nil)
		}
		if m.TopicPartition.Error != nil {
			return errors.ConnectionError("Kafka delivery failed", m.TopicPartition.Error)
		}
		b.GetLogger().Debug("Message delivered to Kafka",
			logging.Field{Key: "topic", Value: topic},
			logging.Field{Key: "partition", Value: m.TopicPartition.Partition},
			logging.Field{Key: "offset", Value: m.TopicPartition.Offset.String()},
		)
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return errors.TimeoutError("Kafka delivery").WithCause(ctx.Err())
		}
		return ctx.Err()
	}
}

// Health fetches metadata for the default topic
func (b *Broker) Health(ctx context.Context) error {
	timeout := b.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if _, err := b.producer.GetMetadata(&b.config.Topic, false, int(timeout.Milliseconds())); err != nil {
		return errors.ConnectionError("Kafka metadata request failed", err)
	}
	return nil
}

// Close flushes outstanding messages and closes the producer
func (b *Broker) Close() error {
	if remaining := b.producer.Flush(int(b.config.Timeout.Milliseconds())); remaining > 0 {
		b.GetLogger().Warn("Kafka producer closed with undelivered messages",
			logging.Field{Key: "remaining", Value: remaining},
		)
	}
	b.producer.Close()
	return nil
}
