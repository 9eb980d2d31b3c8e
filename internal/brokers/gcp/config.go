package gcp

import (
	"fmt"
	"time"

	"outbound-router/internal/common/validation"
)

// Config configures publishing to one Pub/Sub topic. Without credentials
// Application Default Credentials are used; PUBSUB_EMULATOR_HOST is honoured
// by the client library.
type Config struct {
	ProjectID       string `json:"project_id" validate:"required"`
	TopicID         string `json:"topic_id" validate:"required"`
	CredentialsJSON string `json:"credentials_json" validate:"excluded_with=CredentialsPath"`
	CredentialsPath string `json:"credentials_path"`
	Endpoint        string `json:"endpoint"`
	// EnableMessageOrdering publishes with the correlation id as ordering key
	EnableMessageOrdering bool          `json:"enable_message_ordering"`
	Timeout               time.Duration `json:"timeout"`
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

func (c *Config) GetType() string {
	return "pubsub"
}

func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("pubsub://%s/%s", c.ProjectID, c.TopicID)
}
