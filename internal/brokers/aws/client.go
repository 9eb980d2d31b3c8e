package aws

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"outbound-router/internal/brokers"
	"outbound-router/internal/brokers/base"
	"outbound-router/internal/common/errors"
)

// loadConfig builds the SDK config from region and optional static keys
func loadConfig(ctx context.Context, creds Credentials) (aws.Config, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(creds.Region),
	}
	if creds.AccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.ConnectionError("failed to load AWS config", err)
	}
	return cfg, nil
}

// attribute is a string or number message attribute before it is turned
// into the service specific type
type attribute struct {
	dataType string
	value    string
}

// messageAttributes flattens a broker message into attributes. Headers
// are prefixed with Header_ so they never collide with the fixed names.
func messageAttributes(message *brokers.Message) map[string]attribute {
	attrs := map[string]attribute{
		"MessageID": {"String", message.MessageID},
		"Timestamp": {"Number", strconv.FormatInt(message.Timestamp.UnixNano(), 10)},
	}
	if message.RoutingKey != "" {
		attrs["RoutingKey"] = attribute{"String", message.RoutingKey}
	}
	if message.ContentType != "" {
		attrs["ContentType"] = attribute{"String", message.ContentType}
	}
	for key, value := range message.Headers {
		if value == "" {
			continue
		}
		attrs["Header_"+key] = attribute{"String", value}
	}
	return attrs
}

// groupID returns the FIFO message group: the correlation id when present
// so that a whole group keeps its order
func groupID(message *brokers.Message) string {
	if id := message.Headers[brokers.HeaderCorrelationID]; id != "" {
		return id
	}
	return "default"
}

func validate(message *brokers.Message) error {
	if err := base.ValidateMessage(message); err != nil {
		return err
	}
	if len(message.Body) == 0 {
		return errors.ValidationError("message body is required")
	}
	return nil
}
