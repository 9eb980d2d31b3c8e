package rabbitmq

import (
	"fmt"

	"outbound-router/internal/brokers"
)

// Factory creates RabbitMQ brokers
type Factory struct{}

func (Factory) GetType() string { return "rabbitmq" }

func (Factory) NewConfig() brokers.BrokerConfig { return &Config{} }

func (Factory) Create(config brokers.BrokerConfig) (brokers.Broker, error) {
	rmqConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for RabbitMQ broker: %T", config)
	}
	return NewBroker(rmqConfig)
}
