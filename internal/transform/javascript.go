package transform

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

const (
	defaultScriptTimeout = 5 * time.Second
	maxScriptTimeout     = time.Minute
)

// JavaScriptConfig configures a JavaScript transformer
type JavaScriptConfig struct {
	// Script is either a body returning the new payload or a script that
	// defines function transform(payload)
	Script        string         `json:"script" validate:"required"`
	Timeout       time.Duration  `json:"timeout"`
	EnableConsole bool           `json:"enable_console"`
	Globals       map[string]any `json:"globals"`
}

// JavaScript runs a compiled script in a fresh goja runtime per message.
// The script sees payload, props, correlation and id; its return value is
// the new payload.
type JavaScript struct {
	name    string
	config  JavaScriptConfig
	program *goja.Program
	logger  logging.Logger
}

// NewJavaScript compiles the script
func NewJavaScript(name string, config JavaScriptConfig) (*JavaScript, error) {
	if strings.TrimSpace(config.Script) == "" {
		return nil, errors.ConfigError("JavaScript script is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultScriptTimeout
	}
	if config.Timeout > maxScriptTimeout {
		return nil, errors.ConfigErrorf("script timeout must not exceed %s", maxScriptTimeout)
	}

	program, err := goja.Compile(name, wrapScript(config.Script), false)
	if err != nil {
		return nil, errors.ConfigErrorf("failed to compile JavaScript %s", name).WithCause(err)
	}

	return &JavaScript{
		name:    name,
		config:  config,
		program: program,
		logger:  logging.GetGlobalLogger().WithFields(logging.String("transformer", name)),
	}, nil
}

func wrapScript(script string) string {
	if strings.Contains(script, "function transform(") || strings.Contains(script, "transform =") {
		return script + "\n\ntransform(payload);"
	}
	return fmt.Sprintf("(function transform(payload) {\n%s\n})(payload);", script)
}

// Transform runs the script. Execution is interrupted when the configured
// timeout or ctx ends first.
func (j *JavaScript) Transform(ctx context.Context, msg *message.Message) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	j.addBuiltins(vm)
	for key, value := range j.config.Globals {
		if err := vm.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting global %s: %w", key, err)
		}
	}

	c := msg.Correlation()
	bindings := map[string]any{
		"payload": jsPayload(msg.Payload()),
		"props":   map[string]any(msg.OutboundProperties()),
		"id":      msg.ID(),
		"correlation": map[string]any{
			"id":             c.ID(),
			"groupSize":      c.GroupSize(),
			"sequenceNumber": c.SequenceNumber(),
		},
	}
	for key, value := range bindings {
		if err := vm.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	result, err := vm.RunProgram(j.program)
	if err != nil {
		var interrupted *goja.InterruptedError
		if stderrors.As(err, &interrupted) {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, errors.TimeoutError("JavaScript transform " + j.name).WithCause(err)
			}
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("JavaScript transform %s failed: %w", j.name, err)
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

// jsPayload makes byte payloads usable from scripts: JSON is decoded and
// anything else becomes a string
func jsPayload(payload any) any {
	b, ok := payload.([]byte)
	if !ok {
		return payload
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err == nil {
		return decoded
	}
	return string(b)
}

func (j *JavaScript) addBuiltins(vm *goja.Runtime) {
	vm.Set("jsonParse", func(str string) any {
		var result any
		if err := json.Unmarshal([]byte(str), &result); err != nil {
			return nil
		}
		return result
	})
	vm.Set("jsonStringify", func(obj any) string {
		b, err := json.Marshal(obj)
		if err != nil {
			return ""
		}
		return string(b)
	})
	vm.Set("now", func() int64 {
		return time.Now().UnixMilli()
	})

	if j.config.EnableConsole {
		console := vm.NewObject()
		console.Set("log", func(args ...any) {
			j.logger.Info("console.log", logging.Any("args", args))
		})
		console.Set("error", func(args ...any) {
			j.logger.Warn("console.error", logging.Any("args", args))
		})
		vm.Set("console", console)
	}
}
