package destination

import (
	"context"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

// Log logs every message and echoes it back as the response
type Log struct {
	name   string
	logger logging.Logger
}

// NewLog returns an echo destination. A nil logger uses the global one.
func NewLog(name string, logger logging.Logger) *Log {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Log{name: name, logger: logger.WithFields(logging.Destination(name))}
}

func (l *Log) Name() string { return l.name }

func (l *Log) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	l.logger.WithContext(ctx).Info("Message received",
		logging.MessageID(msg.ID()),
		logging.String("correlation", msg.Correlation().String()),
		logging.Any("payload", msg.Payload()),
		logging.Bool("await_response", awaitResponse),
	)
	if !awaitResponse {
		return nil, nil
	}
	return msg, nil
}
