package settings

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celRuleProgram struct {
	env     *celgo.Env
	program celgo.Program
}

// CELValidator builds a ValidateFunc from a CEL expression. The candidate
// value is bound as `value`; registered functions are reachable through
// `call("name", ...)` with up to two arguments.
func CELValidator(expression string, opts ...RuleOption) ValidateFunc {
	cfg := applyRuleOptions(opts)
	return func(value any) (any, error) {
		return evalCELRule(cfg, expression, value)
	}
}

// CELSanitizer builds a SanitizeFunc from a CEL expression; the pipeline's
// double application enforces idempotence.
func CELSanitizer(expression string, opts ...RuleOption) SanitizeFunc {
	cfg := applyRuleOptions(opts)
	return func(value any) (any, error) {
		return evalCELRule(cfg, expression, value)
	}
}

func evalCELRule(cfg ruleConfig, expression string, value any) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("settings: expression must not be empty")
	}
	program, err := loadOrCompileCELRule(cfg, expression)
	if err != nil {
		return nil, err
	}
	activation := map[string]any{
		"value": value,
	}
	out, _, err := program.program.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("settings: cel rule %q: %w", expression, err)
	}
	return out.Value(), nil
}

func loadOrCompileCELRule(cfg ruleConfig, expression string) (*celRuleProgram, error) {
	cacheKey := "cel:" + expression
	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(cacheKey); ok {
			if program, ok := cached.(*celRuleProgram); ok {
				return program, nil
			}
		}
	}

	envOpts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
	}
	if cfg.registry != nil {
		binding := celgo.FunctionBinding(celRuleCallBinding(cfg.registry))
		envOpts = append(envOpts, celgo.Function("call",
			celgo.Overload("call_name",
				[]*celgo.Type{celgo.StringType}, celgo.DynType, binding),
			celgo.Overload("call_name_arg",
				[]*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType, binding),
			celgo.Overload("call_name_arg_arg",
				[]*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType, binding),
		))
	}
	env, err := celgo.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("settings: cel env for rule %q: %w", expression, err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("settings: parse cel rule %q: %w", expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("settings: check cel rule %q: %w", expression, issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("settings: program cel rule %q: %w", expression, err)
	}

	bundle := &celRuleProgram{env: env, program: prg}
	if cfg.cache != nil {
		cfg.cache.Set(cacheKey, bundle)
	}
	return bundle, nil
}

func celRuleCallBinding(registry *FunctionRegistry) func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if registry == nil {
			return types.NewErr("settings: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("settings: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("settings: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
