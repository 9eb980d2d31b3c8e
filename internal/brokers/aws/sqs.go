// Package aws publishes routed messages to SQS queues and SNS topics
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// SQSAPI is the part of *sqs.Client the broker uses
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQSBroker sends messages to one SQS queue
type SQSBroker struct {
	*base.BaseBroker
	config *SQSConfig
	client SQSAPI
}

// NewSQSBroker loads AWS configuration and creates the SQS client
func NewSQSBroker(config *SQSConfig) (*SQSBroker, error) {
	baseBroker, err := base.NewBaseBroker("sqs", config)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(context.Background(), config.Credentials)
	if err != nil {
		return nil, err
	}

	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	return &SQSBroker{BaseBroker: baseBroker, config: config, client: client}, nil
}

// NewSQSBrokerWithClient builds a broker over an existing client
func NewSQSBrokerWithClient(config *SQSConfig, client SQSAPI) (*SQSBroker, error) {
	baseBroker, err := base.NewBaseBroker("sqs", config)
	if err != nil {
		return nil, err
	}
	return &SQSBroker{BaseBroker: baseBroker, config: config, client: client}, nil
}

// Publish sends the message body with its headers as message attributes
func (b *SQSBroker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := validate(message); err != nil {
		return err
	}

	attrs := make(map[string]types.MessageAttributeValue)
	for name, attr := range messageAttributes(message) {
		attrs[name] = types.MessageAttributeValue{
			DataType:    aws.String(attr.dataType),
			StringValue: aws.String(attr.value),
		}
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(b.config.QueueURL),
		MessageBody:       aws.String(string(message.Body)),
		MessageAttributes: attrs,
	}
	if b.config.IsFIFO() {
		input.MessageGroupId = aws.String(groupID(message))
		input.MessageDeduplicationId = aws.String(message.MessageID)
	} else if b.config.DelaySeconds > 0 {
		input.DelaySeconds = b.config.DelaySeconds
	}

	result, err := b.client.SendMessage(ctx, input)
	if err != nil {
		return errors.ConnectionError("failed to send message to SQS", err)
	}

	b.GetLogger().Debug("Message sent to SQS",
		logging.Field{Key: "sqs_message_id", Value: aws.ToString(result.MessageId)},
		logging.MessageID(message.MessageID),
	)
	return nil
}

// Health reads one queue attribute
func (b *SQSBroker) Health(ctx context.Context) error {
	_, err := b.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(b.config.QueueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return errors.ConnectionError("SQS health check failed", err)
	}
	return nil
}

// Close is a no-op; SDK clients hold no connections of their own
func (b *SQSBroker) Close() error {
	return nil
}
