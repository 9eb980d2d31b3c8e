// Package redis publishes routed messages to Redis Streams with XADD
package redis

import (
	"context"

	"github.com/go-redis/redis/v8"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// Broker publishes to Redis Streams
type Broker struct {
	*base.BaseBroker
	client *redis.Client
	config *Config
}

// NewBroker connects to Redis and verifies the connection with PING
func NewBroker(config *Config) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("redis", config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Address,
		Password:    config.Password,
		DB:          config.DB,
		PoolSize:    config.PoolSize,
		DialTimeout: config.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.ConnectionError("failed to connect to Redis", err)
	}

	return &Broker{
		BaseBroker: baseBroker,
		client:     client,
		config:     config,
	}, nil
}

// Publish appends the message to its stream. Headers become header_* fields.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := base.ValidateMessage(message); err != nil {
		return err
	}

	stream := base.TopicOrDefault(message, b.config.Stream)

	fields := map[string]interface{}{
		"body":       string(message.Body),
		"timestamp":  message.Timestamp.UnixNano(),
		"message_id": message.MessageID,
	}
	if message.RoutingKey != "" {
		fields["routing_key"] = message.RoutingKey
	}
	if message.ContentType != "" {
		fields["content_type"] = message.ContentType
	}
	for key, value := range message.Headers {
		fields["header_"+key] = value
	}

	args := &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: fields,
	}
	if b.config.StreamMaxLen > 0 {
		args.MaxLen = b.config.StreamMaxLen
		args.Approx = true
	}

	id, err := b.client.XAdd(ctx, args).Result()
	if err != nil {
		return errors.ConnectionError("failed to publish message to Redis stream", err)
	}

	b.GetLogger().Debug("Message published to Redis stream",
		logging.Field{Key: "stream", Value: stream},
		logging.Field{Key: "id", Value: id},
		logging.MessageID(message.MessageID),
	)
	return nil
}

// Health pings Redis
func (b *Broker) Health(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return errors.ConnectionError("Redis health check failed", err)
	}
	return nil
}

// Close closes the client
func (b *Broker) Close() error {
	return b.client.Close()
}
