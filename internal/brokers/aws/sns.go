package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
)

// SNSAPI is the part of *sns.Client the broker uses
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error)
}

// SNSBroker publishes messages to one SNS topic
type SNSBroker struct {
	*base.BaseBroker
	config *SNSConfig
	client SNSAPI
}

func NewSNSBroker(config *SNSConfig) (*SNSBroker, error) {
	baseBroker, err := base.NewBaseBroker("sns", config)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(context.Background(), config.Credentials)
	if err != nil {
		return nil, err
	}

	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	return &SNSBroker{BaseBroker: baseBroker, config: config, client: client}, nil
}

func NewSNSBrokerWithClient(config *SNSConfig, client SNSAPI) (*SNSBroker, error) {
	baseBroker, err := base.NewBaseBroker("sns", config)
	if err != nil {
		return nil, err
	}
	return &SNSBroker{BaseBroker: baseBroker, config: config, client: client}, nil
}

// Publish sends the message; the message topic, when set, becomes the subject
func (b *SNSBroker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := validate(message); err != nil {
		return err
	}

	attrs := make(map[string]snsTypes.MessageAttributeValue)
	for name, attr := range messageAttributes(message) {
		attrs[name] = snsTypes.MessageAttributeValue{
			DataType:    aws.String(attr.dataType),
			StringValue: aws.String(attr.value),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(b.config.TopicARN),
		Message:           aws.String(string(message.Body)),
		MessageAttributes: attrs,
	}
	if message.Topic != "" {
		input.Subject = aws.String(message.Topic)
	}
	if b.config.IsFIFO() {
		input.MessageGroupId = aws.String(groupID(message))
		input.MessageDeduplicationId = aws.String(message.MessageID)
	}

	result, err := b.client.Publish(ctx, input)
	if err != nil {
		return errors.ConnectionError("failed to publish message to SNS", err)
	}

	b.GetLogger().Debug("Message published to SNS",
		logging.Field{Key: "sns_message_id", Value: aws.ToString(result.MessageId)},
		logging.MessageID(message.MessageID),
	)
	return nil
}

func (b *SNSBroker) Health(ctx context.Context) error {
	_, err := b.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(b.config.TopicARN),
	})
	if err != nil {
		return errors.ConnectionError("SNS health check failed", err)
	}
	return nil
}

func (b *SNSBroker) Close() error {
	return nil
}
