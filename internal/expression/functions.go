package expression

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Options returns the compile options shared by every expression: the Env
// type and the helper functions below, on top of the expr builtins.
func Options() []expr.Option {
	return []expr.Option{
		expr.Env(Env{}),
		expr.Function("coalesce", coalesceFunc),
		expr.Function("default", defaultFunc),
		expr.Function("isEmpty", isEmptyFunc),
		expr.Function("typeof", typeofFunc),
		expr.Function("uuid", uuidFunc),
		expr.Function("pick", pickFunc),
		expr.Function("omit", omitFunc),
	}
}

func coalesceFunc(params ...any) (any, error) {
	for _, arg := range params {
		if arg != nil {
			if str, ok := arg.(string); !ok || str != "" {
				return arg, nil
			}
		}
	}
	return nil, nil
}

func defaultFunc(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("default() requires exactly 2 arguments")
	}
	if params[0] == nil {
		return params[1], nil
	}
	if str, ok := params[0].(string); ok && str == "" {
		return params[1], nil
	}
	return params[0], nil
}

func isEmptyFunc(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("isEmpty() requires exactly 1 argument")
	}
	switch v := params[0].(type) {
	case nil:
		return true, nil
	case string:
		return v == "", nil
	case []any:
		return len(v) == 0, nil
	case map[string]any:
		return len(v) == 0, nil
	default:
		return false, nil
	}
}

func typeofFunc(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("typeof() requires exactly 1 argument")
	}
	switch params[0].(type) {
	case nil:
		return "null", nil
	case string:
		return "string", nil
	case bool:
		return "boolean", nil
	case float64, float32, int, int64, int32:
		return "number", nil
	case []any:
		return "array", nil
	case map[string]any:
		return "object", nil
	default:
		return fmt.Sprintf("%T", params[0]), nil
	}
}

func uuidFunc(params ...any) (any, error) {
	return uuid.NewString(), nil
}

func keyArgs(name string, params []any) (map[string]any, []string, error) {
	if len(params) < 2 {
		return nil, nil, fmt.Errorf("%s() requires at least 2 arguments", name)
	}
	obj, ok := params[0].(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%s() first argument must be an object", name)
	}
	keys := lo.FilterMap(params[1:], func(k any, _ int) (string, bool) {
		s, ok := k.(string)
		return s, ok
	})
	return obj, keys, nil
}

func pickFunc(params ...any) (any, error) {
	obj, keys, err := keyArgs("pick", params)
	if err != nil {
		return nil, err
	}
	return lo.PickByKeys(obj, keys), nil
}

func omitFunc(params ...any) (any, error) {
	obj, keys, err := keyArgs("omit", params)
	if err != nil {
		return nil, err
	}
	return lo.OmitByKeys(obj, keys), nil
}
