package kafka

import (
	"fmt"

	"outbound-router/internal/brokers"
)

// Factory creates Kafka brokers
type Factory struct{}

func (Factory) GetType() string { return "kafka" }

func (Factory) NewConfig() brokers.BrokerConfig { return &Config{} }

func (Factory) Create(config brokers.BrokerConfig) (brokers.Broker, error) {
	kafkaConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for Kafka broker: %T", config)
	}
	return NewBroker(kafkaConfig)
}
