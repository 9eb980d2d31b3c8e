package aws

import (
	"fmt"
	"strings"

	"outbound-router/internal/common/validation"
)

// Credentials holds the region and optional static credentials shared by
// the SQS and SNS brokers. Without static keys the default credential chain
// is used.
type Credentials struct {
	Region          string `json:"region" validate:"required"`
	AccessKeyID     string `json:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `json:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `json:"session_token"`
	// Endpoint overrides the service endpoint, e.g. for LocalStack
	Endpoint string `json:"endpoint" validate:"omitempty,url"`
}

// SQSConfig configures publishing to one queue
type SQSConfig struct {
	Credentials
	QueueURL string `json:"queue_url" validate:"required,url"`
	// DelaySeconds delays delivery of every message
	DelaySeconds int32 `json:"delay_seconds" validate:"gte=0,lte=900"`
}

func (c *SQSConfig) Validate() error {
	return validation.ValidateStruct(c)
}

func (c *SQSConfig) GetType() string {
	return "sqs"
}

func (c *SQSConfig) GetConnectionString() string {
	return fmt.Sprintf("sqs://%s/%s", c.Region, c.QueueURL)
}

// IsFIFO reports whether the queue is a FIFO queue
func (c *SQSConfig) IsFIFO() bool {
	return strings.HasSuffix(c.QueueURL, ".fifo")
}

// SNSConfig configures publishing to one topic
type SNSConfig struct {
	Credentials
	TopicARN string `json:"topic_arn" validate:"required,startswith=arn:"`
}

func (c *SNSConfig) Validate() error {
	return validation.ValidateStruct(c)
}

func (c *SNSConfig) GetType() string {
	return "sns"
}

func (c *SNSConfig) GetConnectionString() string {
	return fmt.Sprintf("sns://%s/%s", c.Region, c.TopicARN)
}

// IsFIFO reports whether the topic is a FIFO topic
func (c *SNSConfig) IsFIFO() bool {
	return strings.HasSuffix(c.TopicARN, ".fifo")
}
