package expression

import (
	"fmt"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

// CorrelationIDMapper derives correlation ids from message content, e.g.
// `props.orderId` or `payload.customer.id`. When the expression fails or
// yields nothing the message id is used.
type CorrelationIDMapper struct {
	evaluator  *Evaluator
	expression string
}

func NewCorrelationIDMapper(evaluator *Evaluator, expression string) (*CorrelationIDMapper, error) {
	if err := evaluator.Validate(expression); err != nil {
		return nil, err
	}
	return &CorrelationIDMapper{evaluator: evaluator, expression: expression}, nil
}

func (m *CorrelationIDMapper) CorrelationID(msg *message.Message) string {
	v, err := m.evaluator.Evaluate(m.expression, msg)
	if err != nil {
		logging.GetGlobalLogger().Warn("Correlation id expression failed, using message id",
			logging.String("expression", m.expression),
			logging.Err(err),
		)
		return msg.ID()
	}
	if v == nil {
		return msg.ID()
	}
	if s := fmt.Sprint(v); s != "" {
		return s
	}
	return msg.ID()
}
