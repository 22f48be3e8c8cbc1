//go:build js_eval

package settings

import (
	"fmt"

	"github.com/dop251/goja"
)

// JSValidator builds a ValidateFunc from a JavaScript expression evaluated
// with goja. The candidate value is bound as `value`; registered functions
// are installed on the global object. Available only with the js_eval build
// tag.
func JSValidator(expression string, opts ...RuleOption) ValidateFunc {
	cfg := applyRuleOptions(opts)
	return func(value any) (any, error) {
		return evalJSRule(cfg, expression, value)
	}
}

// JSSanitizer builds a SanitizeFunc from a JavaScript expression; the
// pipeline's double application enforces idempotence.
func JSSanitizer(expression string, opts ...RuleOption) SanitizeFunc {
	cfg := applyRuleOptions(opts)
	return func(value any) (any, error) {
		return evalJSRule(cfg, expression, value)
	}
}

func jsRulesAvailable() bool {
	return true
}

func evalJSRule(cfg ruleConfig, expression string, value any) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("settings: expression must not be empty")
	}
	program, err := loadOrCompileJSRule(cfg, expression)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	if err := vm.Set("value", value); err != nil {
		return nil, fmt.Errorf("settings: js rule %q: %w", expression, err)
	}
	if cfg.registry != nil {
		if err := vm.Set("call", func(name string, arguments ...any) (any, error) {
			return cfg.registry.Call(name, arguments...)
		}); err != nil {
			return nil, fmt.Errorf("settings: js rule %q: %w", expression, err)
		}
		for _, name := range cfg.registry.Names() {
			fn := name
			if err := vm.Set(fn, func(arguments ...any) (any, error) {
				return cfg.registry.Call(fn, arguments...)
			}); err != nil {
				return nil, fmt.Errorf("settings: js rule %q: %w", expression, err)
			}
		}
	}

	result, err := vm.RunProgram(program)
	if err != nil {
		return nil, fmt.Errorf("settings: js rule %q: %w", expression, err)
	}
	return result.Export(), nil
}

func loadOrCompileJSRule(cfg ruleConfig, expression string) (*goja.Program, error) {
	cacheKey := "js:" + expression
	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(cacheKey); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("rule", expression, true)
	if err != nil {
		return nil, fmt.Errorf("settings: compile js rule %q: %w", expression, err)
	}
	if cfg.cache != nil {
		cfg.cache.Set(cacheKey, program)
	}
	return program, nil
}
