package kafka

import (
	"fmt"
	"strings"
	"time"

	"outbound-router/internal/common/validation"
)

// Config configures the Kafka producer
type Config struct {
	Brokers          []string      `json:"brokers" validate:"required,min=1,dive,required"`
	ClientID         string        `json:"client_id"`
	SecurityProtocol string        `json:"security_protocol" validate:"omitempty,oneof=PLAINTEXT SSL SASL_PLAINTEXT SASL_SSL"`
	SASLMechanism    string        `json:"sasl_mechanism" validate:"omitempty,oneof=PLAIN SCRAM-SHA-256 SCRAM-SHA-512"`
	SASLUsername     string        `json:"sasl_username"`
	SASLPassword     string        `json:"sasl_password"`
	Timeout          time.Duration `json:"timeout"`
	// Topic is used when a message carries no topic
	Topic string `json:"topic"`
	// Acks is passed through as the "acks" producer setting
	Acks string `json:"acks" validate:"omitempty,oneof=0 1 all"`
}

// Validate checks the config and applies defaults
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if c.ClientID == "" {
		c.ClientID = "outbound-router"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = "PLAINTEXT"
	}
	if c.Topic == "" {
		c.Topic = "outbound-messages"
	}
	if c.Acks == "" {
		c.Acks = "all"
	}

	if strings.HasPrefix(c.SecurityProtocol, "SASL_") {
		if c.SASLMechanism == "" {
			c.SASLMechanism = "PLAIN"
		}
		if c.SASLUsername == "" || c.SASLPassword == "" {
			return fmt.Errorf("SASL username and password are required for %s", c.SecurityProtocol)
		}
	}
	return nil
}

func (c *Config) GetType() string {
	return "kafka"
}

func (c *Config) GetConnectionString() string {
	return strings.Join(c.Brokers, ",")
}
