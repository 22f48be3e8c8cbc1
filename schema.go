package settings

import (
	"fmt"
	"reflect"
)

// SanitizeFunc normalizes a candidate value before validation. Sanitizers
// must be pure and idempotent; the pipeline enforces idempotence by applying
// every sanitizer twice and comparing the results.
type SanitizeFunc func(value any) (any, error)

// ValidateFunc inspects a sanitized value. The result must be exactly a
// bool: anything else violates the validator contract. Returning an error
// aborts the operation with that error.
type ValidateFunc func(value any) (any, error)

// DefaultFunc lazily resolves a default value. The cfg argument is the
// object supplied through WithDefaultsConfig, nil when none was configured.
type DefaultFunc func(cfg any) (any, error)

// Rule describes the schema contract for a single key. Validate is
// mandatory once the key is registered; Sanitize and the default fields are
// optional. Resolve wins over Default when both are set.
type Rule struct {
	Default  any
	Resolve  DefaultFunc
	Sanitize SanitizeFunc
	Validate ValidateFunc
}

// mergeSchema folds incoming rules into a copy of the existing schema,
// field by field: nil fields of an incoming rule preserve whatever the key
// already had. The merged result is checked as a whole so a violation leaves
// the caller's schema untouched.
func mergeSchema(existing, incoming map[string]Rule) (map[string]Rule, error) {
	merged := make(map[string]Rule, len(existing)+len(incoming))
	for key, rule := range existing {
		merged[key] = rule
	}
	for key, rule := range incoming {
		normalized := NormalizeKey(key)
		if normalized == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("schema key %q normalizes to nothing", key)}
		}
		current := merged[normalized]
		if rule.Default != nil {
			current.Default = rule.Default
		}
		if rule.Resolve != nil {
			current.Resolve = rule.Resolve
		}
		if rule.Sanitize != nil {
			current.Sanitize = rule.Sanitize
		}
		if rule.Validate != nil {
			current.Validate = rule.Validate
		}
		merged[normalized] = current
	}
	for key, rule := range merged {
		if rule.Validate == nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("schema key %q has no validator", key)}
		}
	}
	return merged, nil
}

// applyRule runs the sanitize/validate pipeline for one normalized key.
// Every failure is returned before any store state changes.
func (s *Store) applyRule(key string, value any) (any, error) {
	rule, ok := s.schema[key]
	if !ok {
		err := &SchemaMissingError{Key: key}
		s.logger.LogSchema(SchemaEvent{Action: "lookup", Key: key, Err: err})
		return nil, err
	}

	sanitized := value
	if rule.Sanitize != nil {
		once, err := rule.Sanitize(value)
		if err != nil {
			s.logger.LogSchema(SchemaEvent{Action: "sanitize", Key: key, Err: err})
			return nil, err
		}
		twice, err := rule.Sanitize(once)
		if err != nil {
			s.logger.LogSchema(SchemaEvent{Action: "sanitize", Key: key, Err: err})
			return nil, err
		}
		if !reflect.DeepEqual(once, twice) {
			err := &SanitizeIdempotenceError{Key: key, First: once, Second: twice}
			s.logger.LogSchema(SchemaEvent{Action: "sanitize", Key: key, Err: err})
			return nil, err
		}
		sanitized = once
	}

	result, err := rule.Validate(sanitized)
	if err != nil {
		s.logger.LogSchema(SchemaEvent{Action: "validate", Key: key, Err: err})
		return nil, err
	}
	valid, ok := result.(bool)
	if !ok {
		err := &ValidationContractError{Key: key, Result: result}
		s.logger.LogSchema(SchemaEvent{Action: "validate", Key: key, Err: err})
		return nil, err
	}
	if !valid {
		err := &ValidationError{Key: key, Value: sanitized}
		s.logger.LogSchema(SchemaEvent{Action: "validate", Key: key, Err: err})
		return nil, err
	}
	return sanitized, nil
}

// resolveDefault produces the seed value for a key, invoking the lazy
// resolver with the configured defaults object when present.
func (s *Store) resolveDefault(rule Rule) (any, error) {
	if rule.Resolve != nil {
		return rule.Resolve(s.defaultsCfg)
	}
	return rule.Default, nil
}
