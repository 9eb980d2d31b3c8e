package aws

import (
	"fmt"

	"outbound-router/internal/brokers"
)

// SQSFactory creates SQS brokers
type SQSFactory struct{}

func (SQSFactory) GetType() string { return "sqs" }

func (SQSFactory) NewConfig() brokers.BrokerConfig { return &SQSConfig{} }

func (SQSFactory) Create(config brokers.BrokerConfig) (brokers.Broker, error) {
	sqsConfig, ok := config.(*SQSConfig)
	if !ok {
		return nil, fmt.Errorf("invalid config type for SQS broker: %T", config)
	}
	return NewSQSBroker(sqsConfig)
}

// SNSFactory creates SNS brokers
type SNSFactory struct{}

func (SNSFactory) GetType() string { return "sns" }

func (SNSFactory) NewConfig() brokers.BrokerConfig { return &SNSConfig{} }

func (SNSFactory) Create(config brokers.BrokerConfig) (brokers.Broker, error) {
	snsConfig, ok := config.(*SNSConfig)
	if !ok {
		return nil, fmt.Errorf("invalid config type for SNS broker: %T", config)
	}
	return NewSNSBroker(snsConfig)
}
