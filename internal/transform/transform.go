// Package transform holds the payload transformers used by transform
// routers: plain Go functions, expr-lang expressions and JavaScript.
package transform

import (
	"context"

	"outbound-router/internal/expression"
	"outbound-router/internal/message"
)

// Transformer computes a new payload for msg
type Transformer interface {
	Transform(ctx context.Context, msg *message.Message) (any, error)
}

// Func adapts a function into a Transformer
type Func func(ctx context.Context, msg *message.Message) (any, error)

func (f Func) Transform(ctx context.Context, msg *message.Message) (any, error) {
	return f(ctx, msg)
}

// Expression evaluates an expression and uses its value as the new payload
type Expression struct {
	evaluator  *expression.Evaluator
	expression string
}

func NewExpression(evaluator *expression.Evaluator, expr string) (*Expression, error) {
	if err := evaluator.Validate(expr); err != nil {
		return nil, err
	}
	return &Expression{evaluator: evaluator, expression: expr}, nil
}

func (e *Expression) Transform(ctx context.Context, msg *message.Message) (any, error) {
	if event, ok := message.EventFromContext(ctx); ok && event.Message() == msg {
		return e.evaluator.EvaluateEvent(e.expression, event)
	}
	return e.evaluator.Evaluate(e.expression, msg)
}
