// Package base holds what every broker implementation shares: validated
// configuration, a tagged logger, and header helpers.
package base

import (
	"fmt"

	"outbound-router/internal/brokers"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// BaseBroker provides naming, logging and configuration for brokers
type BaseBroker struct {
	name   string
	logger logging.Logger
	config brokers.BrokerConfig
}

// NewBaseBroker validates config and prepares a logger tagged with the
// broker name and its sanitised connection string
func NewBaseBroker(name string, config brokers.BrokerConfig) (*BaseBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid %s config", name)).WithCause(err)
	}

	logger := logging.GetGlobalLogger().WithFields(
		logging.Field{Key: "broker", Value: name},
		logging.Field{Key: "connection", Value: config.GetConnectionString()},
	)

	return &BaseBroker{
		name:   name,
		config: config,
		logger: logger,
	}, nil
}

// Name returns the broker type name
func (b *BaseBroker) Name() string {
	return b.name
}

// GetLogger returns the broker logger
func (b *BaseBroker) GetLogger() logging.Logger {
	return b.logger
}

// GetConfig returns the broker configuration
func (b *BaseBroker) GetConfig() brokers.BrokerConfig {
	return b.config
}

// ValidateMessage rejects messages no broker can publish
func ValidateMessage(msg *brokers.Message) error {
	if msg == nil {
		return errors.ValidationError("message is nil")
	}
	if msg.MessageID == "" {
		return errors.ValidationError("message id is required")
	}
	return nil
}

// TopicOrDefault returns the message topic, falling back to def
func TopicOrDefault(msg *brokers.Message, def string) string {
	if msg.Topic != "" {
		return msg.Topic
	}
	return def
}
