//go:build !js_eval

package settings

import "fmt"

// JSValidator is unavailable without the js_eval build tag; the returned
// rule fails at call time.
func JSValidator(expression string, opts ...RuleOption) ValidateFunc {
	_ = applyRuleOptions(opts)
	return func(any) (any, error) {
		return nil, fmt.Errorf("settings: js rules require the js_eval build tag")
	}
}

// JSSanitizer is unavailable without the js_eval build tag; the returned
// rule fails at call time.
func JSSanitizer(expression string, opts ...RuleOption) SanitizeFunc {
	_ = applyRuleOptions(opts)
	return func(any) (any, error) {
		return nil, fmt.Errorf("settings: js rules require the js_eval build tag")
	}
}

func jsRulesAvailable() bool {
	return false
}
