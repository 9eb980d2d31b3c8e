package rabbitmq

import (
	"fmt"
	"net/url"

	"outbound-router/internal/common/validation"
)

// Config configures the AMQP publisher
type Config struct {
	URL string `json:"url" validate:"required,url"`
	// Exchange is empty for the default exchange
	Exchange string `json:"exchange"`
	// Queue is declared on connect and used as routing key when nothing else is given
	Queue      string `json:"queue"`
	RoutingKey string `json:"routing_key"`
	Durable    bool   `json:"durable"`
	Mandatory  bool   `json:"mandatory"`
}

// Validate checks the config with struct tags
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Exchange == "" && c.Queue == "" && c.RoutingKey == "" {
		return fmt.Errorf("one of queue or routing_key is required when publishing to the default exchange")
	}
	return nil
}

// GetConnectionString returns the host without credentials
func (c *Config) GetConnectionString() string {
	if parsedURL, err := url.Parse(c.URL); err == nil {
		return fmt.Sprintf("rabbitmq://%s", parsedURL.Host)
	}
	return "rabbitmq://***"
}

func (c *Config) GetType() string {
	return "rabbitmq"
}
