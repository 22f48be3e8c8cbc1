package settings

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// RuleOption configures expression-backed sanitizers and validators.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// RuleWithCache wires a compiled-program cache into an expression rule.
func RuleWithCache(cache ProgramCache) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.cache = cache
	}
}

// RuleWithFunctions exposes a function registry to an expression rule.
func RuleWithFunctions(registry *FunctionRegistry) RuleOption {
	return func(cfg *ruleConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

func applyRuleOptions(opts []RuleOption) ruleConfig {
	cfg := ruleConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ExprValidator builds a ValidateFunc from an expr-lang expression. The
// candidate value is bound as `value`; registered functions are callable by
// name. An expression yielding anything but a bool trips the store's
// strict-boolean contract check.
func ExprValidator(expression string, opts ...RuleOption) ValidateFunc {
	cfg := applyRuleOptions(opts)
	return func(value any) (any, error) {
		return evalExprRule(cfg, expression, value)
	}
}

// ExprSanitizer builds a SanitizeFunc from an expr-lang expression. The
// expression must be idempotent over its own output; the schema pipeline
// enforces that by double application.
func ExprSanitizer(expression string, opts ...RuleOption) SanitizeFunc {
	cfg := applyRuleOptions(opts)
	return func(value any) (any, error) {
		return evalExprRule(cfg, expression, value)
	}
}

func evalExprRule(cfg ruleConfig, expression string, value any) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("settings: expression must not be empty")
	}
	env := exprRuleEnvironment(cfg, value)
	if cfg.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, fmt.Errorf("settings: expr rule %q: %w", expression, err)
		}
		return result, nil
	}
	program, err := loadOrCompileExprRule(cfg, expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("settings: expr rule %q: %w", expression, err)
	}
	return result, nil
}

func loadOrCompileExprRule(cfg ruleConfig, expression string) (*exprvm.Program, error) {
	cacheKey := "expr:" + expression
	if cached, ok := cfg.cache.Get(cacheKey); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if cfg.registry != nil {
		for _, name := range cfg.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return cfg.registry.Call(fn, arguments...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("settings: compile expr rule %q: %w", expression, err)
	}
	cfg.cache.Set(cacheKey, program)
	return program, nil
}

func exprRuleEnvironment(cfg ruleConfig, value any) map[string]any {
	env := map[string]any{
		"value": value,
	}
	if cfg.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return cfg.registry.Call(name, arguments...)
		}
		for _, name := range cfg.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return cfg.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}
