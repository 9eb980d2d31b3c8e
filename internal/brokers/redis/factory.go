package redis

import (
	"fmt"

	"outbound-router/internal/brokers"
)

// Factory creates Redis stream brokers
type Factory struct{}

func (Factory) GetType() string { return "redis" }

func (Factory) NewConfig() brokers.BrokerConfig { return DefaultConfig() }

func (Factory) Create(config brokers.BrokerConfig) (brokers.Broker, error) {
	redisConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for Redis broker: %T", config)
	}
	return NewBroker(redisConfig)
}
