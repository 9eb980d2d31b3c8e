package gcp

import (
	"fmt"

	"outbound-router/internal/brokers"
)

// Factory creates Pub/Sub brokers
type Factory struct{}

func (Factory) GetType() string { return "pubsub" }

func (Factory) NewConfig() brokers.BrokerConfig { return &Config{} }

func (Factory) Create(config brokers.BrokerConfig) (brokers.Broker, error) {
	gcpConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for Pub/Sub broker: %T", config)
	}
	return NewBroker(gcpConfig)
}
