package expression

import (
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

// Filter accepts messages for which a boolean expression is true.
// Evaluation errors reject the message.
type Filter struct {
	evaluator  *Evaluator
	expression string
}

// NewFilter compiles expression up front so that a bad filter fails at
// configuration time
func NewFilter(evaluator *Evaluator, expression string) (*Filter, error) {
	if _, err := evaluator.program(expression, true); err != nil {
		return nil, err
	}
	return &Filter{evaluator: evaluator, expression: expression}, nil
}

func (f *Filter) Accept(msg *message.Message) bool {
	ok, err := f.evaluator.EvaluateBool(f.expression, msg)
	if err != nil {
		logging.GetGlobalLogger().Warn("Filter expression failed, rejecting message",
			logging.String("expression", f.expression),
			logging.MessageID(msg.ID()),
			logging.Err(err),
		)
		return false
	}
	return ok
}

func (f *Filter) String() string {
	return f.expression
}
