package aws

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/brokers"
	"outbound-router/internal/common/errors"
)

type MockSQS struct {
	mock.Mock
}

func (m *MockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sqs.SendMessageOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSQS) GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sqs.GetQueueAttributesOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.PublishOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSNS) GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.GetTopicAttributesOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

const queueURL = "https://sqs.eu-west-1.amazonaws.com/123456789012/orders"

func testMessage() *brokers.Message {
	return &brokers.Message{
		Body:      []byte(`{"order":1}`),
		MessageID: "msg-1",
		Timestamp: time.Unix(0, 42),
		Headers: map[string]string{
			brokers.HeaderCorrelationID:       "corr-1",
			brokers.HeaderCorrelationSequence: "1",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  interface{ Validate() error }
		wantErr bool
	}{
		{"sqs", &SQSConfig{Credentials: Credentials{Region: "eu-west-1"}, QueueURL: queueURL}, false},
		{"sqs missing region", &SQSConfig{QueueURL: queueURL}, true},
		{"sqs missing queue", &SQSConfig{Credentials: Credentials{Region: "eu-west-1"}}, true},
		{"sqs half credentials", &SQSConfig{Credentials: Credentials{Region: "eu-west-1", AccessKeyID: "AKIA"}, QueueURL: queueURL}, true},
		{"sqs delay too long", &SQSConfig{Credentials: Credentials{Region: "eu-west-1"}, QueueURL: queueURL, DelaySeconds: 901}, true},
		{"sns", &SNSConfig{Credentials: Credentials{Region: "eu-west-1"}, TopicARN: "arn:aws:sns:eu-west-1:123456789012:events"}, false},
		{"sns bad arn", &SNSConfig{Credentials: Credentials{Region: "eu-west-1"}, TopicARN: "events"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSQSBroker_Publish(t *testing.T) {
	client := new(MockSQS)
	b, err := NewSQSBrokerWithClient(&SQSConfig{Credentials: Credentials{Region: "eu-west-1"}, QueueURL: queueURL, DelaySeconds: 5}, client)
	require.NoError(t, err)

	client.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		return aws.ToString(in.QueueUrl) == queueURL &&
			aws.ToString(in.MessageBody) == `{"order":1}` &&
			in.DelaySeconds == 5 &&
			in.MessageGroupId == nil &&
			aws.ToString(in.MessageAttributes["Header_correlation_id"].StringValue) == "corr-1" &&
			aws.ToString(in.MessageAttributes["Timestamp"].DataType) == "Number"
	})).Return(&sqs.SendMessageOutput{MessageId: aws.String("sqs-1")}, nil)

	require.NoError(t, b.Publish(context.Background(), testMessage()))
	client.AssertExpectations(t)
}

func TestSQSBroker_PublishFIFO(t *testing.T) {
	client := new(MockSQS)
	b, err := NewSQSBrokerWithClient(&SQSConfig{Credentials: Credentials{Region: "eu-west-1"}, QueueURL: queueURL + ".fifo"}, client)
	require.NoError(t, err)

	client.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		return aws.ToString(in.MessageGroupId) == "corr-1" && aws.ToString(in.MessageDeduplicationId) == "msg-1"
	})).Return(&sqs.SendMessageOutput{MessageId: aws.String("sqs-1")}, nil)

	require.NoError(t, b.Publish(context.Background(), testMessage()))
	client.AssertExpectations(t)
}

func TestSQSBroker_Errors(t *testing.T) {
	client := new(MockSQS)
	b, err := NewSQSBrokerWithClient(&SQSConfig{Credentials: Credentials{Region: "eu-west-1"}, QueueURL: queueURL}, client)
	require.NoError(t, err)

	err = b.Publish(context.Background(), &brokers.Message{MessageID: "m"})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("throttled")).Once()
	err = b.Publish(context.Background(), testMessage())
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))

	client.On("GetQueueAttributes", mock.Anything, mock.Anything).Return(&sqs.GetQueueAttributesOutput{}, nil).Once()
	assert.NoError(t, b.Health(context.Background()))
	assert.NoError(t, b.Close())
}

func TestSNSBroker_Publish(t *testing.T) {
	client := new(MockSNS)
	topic := "arn:aws:sns:eu-west-1:123456789012:events.fifo"
	b, err := NewSNSBrokerWithClient(&SNSConfig{Credentials: Credentials{Region: "eu-west-1"}, TopicARN: topic}, client)
	require.NoError(t, err)

	msg := testMessage()
	msg.Topic = "order-created"

	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TopicArn) == topic &&
			aws.ToString(in.Subject) == "order-created" &&
			aws.ToString(in.MessageGroupId) == "corr-1" &&
			aws.ToString(in.MessageAttributes["MessageID"].StringValue) == "msg-1"
	})).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil)

	require.NoError(t, b.Publish(context.Background(), msg))
	client.AssertExpectations(t)
}

func TestSNSBroker_HealthFailure(t *testing.T) {
	client := new(MockSNS)
	b, err := NewSNSBrokerWithClient(&SNSConfig{Credentials: Credentials{Region: "eu-west-1"}, TopicARN: "arn:aws:sns:eu-west-1:1:t"}, client)
	require.NoError(t, err)

	client.On("GetTopicAttributes", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("not authorized"))
	assert.True(t, errors.IsType(b.Health(context.Background()), errors.ErrTypeConnection))
}

func TestMessageAttributes_SkipsEmptyHeaders(t *testing.T) {
	attrs := messageAttributes(&brokers.Message{
		MessageID: "m",
		Headers:   map[string]string{brokers.HeaderReplyTo: "", brokers.HeaderCorrelationID: "c"},
	})
	assert.Contains(t, attrs, "Header_correlation_id")
	assert.NotContains(t, attrs, "Header_reply_to")
	assert.NotContains(t, attrs, "RoutingKey")
}
