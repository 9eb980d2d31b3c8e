// Package gcp publishes routed messages to Google Cloud Pub/Sub
package gcp

import (
	"context"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// Broker publishes to one topic
type Broker struct {
	*base.BaseBroker
	config *Config
	client *pubsub.Client
	topic  Topic
}

// NewBroker creates the client and checks that the topic exists
func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("pubsub", config)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	switch {
	case config.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	case config.CredentialsPath != "":
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	client, err := pubsub.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, errors.ConnectionError("failed to create Pub/Sub client", err)
	}

	topic := client.Topic(config.TopicID)
	topic.EnableMessageOrdering = config.EnableMessageOrdering

	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, errors.ConnectionError("failed to check Pub/Sub topic", err)
	}
	if !exists {
		client.Close()
		return nil, errors.NotFoundError("Pub/Sub topic " + config.TopicID)
	}

	return &Broker{
		BaseBroker: baseBroker,
		config:     config,
		client:     client,
		topic:      pubsubTopic{topic: topic},
	}, nil
}

// NewBrokerWithTopic builds a broker over an existing topic
func NewBrokerWithTopic(config *Config, topic Topic) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("pubsub", config)
	if err != nil {
		return nil, err
	}
	return &Broker{BaseBroker: baseBroker, config: config, topic: topic}, nil
}

// Publish sends the message and waits for the server id
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := base.ValidateMessage(message); err != nil {
		return err
	}

	attributes := make(map[string]string, len(message.Headers)+3)
	for k, v := range message.Headers {
		attributes[k] = v
	}
	attributes["message_id"] = message.MessageID
	if message.RoutingKey != "" {
		attributes["routing_key"] = message.RoutingKey
	}
	if message.ContentType != "" {
		attributes["content_type"] = message.ContentType
	}

	msg := &pubsub.Message{
		Data:       message.Body,
		Attributes: attributes,
	}
	if b.config.EnableMessageOrdering {
		msg.OrderingKey = message.Headers[brokers.HeaderCorrelationID]
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	serverID, err := b.topic.Publish(ctx, msg)
	if err != nil {
		if msg.OrderingKey != "" {
			// a failed publish pauses the key until resumed
			b.topic.ResumePublish(msg.OrderingKey)
		}
		return errors.ConnectionError("failed to publish to Pub/Sub", err)
	}

	b.GetLogger().Debug("Message published to Pub/Sub",
		logging.Field{Key: "topic", Value: b.config.TopicID},
		logging.Field{Key: "server_id", Value: serverID},
		logging.MessageID(message.MessageID),
	)
	return nil
}

func (b *Broker) Health(ctx context.Context) error {
	exists, err := b.topic.Exists(ctx)
	if err != nil {
		return errors.ConnectionError("Pub/Sub health check failed", err)
	}
	if !exists {
		return errors.NotFoundError("Pub/Sub topic " + b.config.TopicID)
	}
	return nil
}

// Close flushes pending publishes and closes the client
func (b *Broker) Close() error {
	b.topic.Stop()
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
