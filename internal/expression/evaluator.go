// Package expression evaluates expr-lang expressions against messages. It
// backs split expressions, dynamic recipient lists, filters and correlation
// id mapping.
package expression

import (
	"fmt"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	gocache "github.com/patrickmn/go-cache"

	"outbound-router/internal/common/errors"
	"outbound-router/internal/message"
)

const defaultMaxPrograms = 1000

// Evaluator compiles expressions once and caches the programs
type Evaluator struct {
	cache       *gocache.Cache
	mu          sync.Mutex
	maxPrograms int
}

// NewEvaluator returns an evaluator whose compiled programs expire after ttl
// of disuse. A ttl of zero keeps programs forever.
func NewEvaluator(ttl time.Duration) *Evaluator {
	cleanup := ttl * 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &Evaluator{
		cache:       gocache.New(ttl, cleanup),
		maxPrograms: defaultMaxPrograms,
	}
}

// Evaluate runs expression against msg
func (e *Evaluator) Evaluate(expression string, msg *message.Message) (any, error) {
	return e.EvaluateWithVars(expression, msg, nil)
}

// EvaluateEvent runs expression against the event message and its variables
func (e *Evaluator) EvaluateEvent(expression string, event *message.Event) (any, error) {
	return e.EvaluateWithVars(expression, event.Message(), event.Variables())
}

// EvaluateWithVars runs expression with vars exposed as "vars"
func (e *Evaluator) EvaluateWithVars(expression string, msg *message.Message, vars map[string]any) (any, error) {
	program, err := e.program(expression, false)
	if err != nil {
		return nil, err
	}
	result, err := expr.Run(program, NewEnv(msg, vars))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

// EvaluateBool runs a boolean expression
func (e *Evaluator) EvaluateBool(expression string, msg *message.Message) (bool, error) {
	program, err := e.program(expression, true)
	if err != nil {
		return false, err
	}
	result, err := expr.Run(program, NewEnv(msg, nil))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, not bool", expression, result)
	}
	return b, nil
}

// Validate compiles expression and reports why it is invalid
func (e *Evaluator) Validate(expression string) error {
	_, err := e.program(expression, false)
	return err
}

// IsValidExpression reports whether expression compiles
func (e *Evaluator) IsValidExpression(expression string) bool {
	return e.Validate(expression) == nil
}

// ClearCache drops every compiled program
func (e *Evaluator) ClearCache() {
	e.cache.Flush()
}

func (e *Evaluator) program(expression string, asBool bool) (*vm.Program, error) {
	key := expression
	if asBool {
		key = "bool:" + expression
	}
	if cached, found := e.cache.Get(key); found {
		return cached.(*vm.Program), nil
	}

	if expression == "" {
		return nil, errors.ConfigError("expression is empty")
	}

	options := Options()
	if asBool {
		options = append(options, expr.AsBool())
	}
	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, errors.ConfigErrorf("invalid expression %q", expression).WithCause(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache.ItemCount() >= e.maxPrograms {
		e.cache.DeleteExpired()
		if e.cache.ItemCount() >= e.maxPrograms {
			return program, nil
		}
	}
	e.cache.SetDefault(key, program)
	return program, nil
}

var (
	defaultEvaluator     *Evaluator
	defaultEvaluatorOnce sync.Once
)

// Default returns a process-wide evaluator with a ten minute program TTL
func Default() *Evaluator {
	defaultEvaluatorOnce.Do(func() {
		defaultEvaluator = NewEvaluator(10 * time.Minute)
	})
	return defaultEvaluator
}
