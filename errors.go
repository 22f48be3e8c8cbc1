package settings

import (
	"errors"
	"fmt"
)

// Sentinel errors for the schema and configuration contracts. Gate denials
// and backend I/O failures are boolean outcomes, never errors; everything
// below marks a programmer mistake and aborts the triggering call before any
// state changes.
var (
	// ErrConfiguration indicates the store or a schema registration was
	// assembled incorrectly.
	ErrConfiguration = errors.New("settings: invalid configuration")
	// ErrSchemaMissing indicates a mutation targeted a key with no rule.
	ErrSchemaMissing = errors.New("settings: no schema registered for key")
	// ErrSanitizeNotIdempotent indicates a sanitizer changed its output on
	// reapplication.
	ErrSanitizeNotIdempotent = errors.New("settings: sanitizer is not idempotent")
	// ErrValidatorContract indicates a validator returned a non-boolean.
	ErrValidatorContract = errors.New("settings: validator must return a bool")
	// ErrValidationFailed indicates a validator rejected a value.
	ErrValidationFailed = errors.New("settings: validation failed")
)

// ConfigurationError reports a broken store or schema configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// SchemaMissingError reports a mutation against an unregistered key. Unknown
// keys are rejected fail-closed, never stored silently.
type SchemaMissingError struct {
	Key string
}

func (e *SchemaMissingError) Error() string {
	return fmt.Sprintf("%v: %q", ErrSchemaMissing, e.Key)
}

func (e *SchemaMissingError) Unwrap() error { return ErrSchemaMissing }

// SanitizeIdempotenceError reports a sanitizer whose second application
// produced a different value than its first.
type SanitizeIdempotenceError struct {
	Key    string
	First  any
	Second any
}

func (e *SanitizeIdempotenceError) Error() string {
	return fmt.Sprintf("%v: key %q first %v then %v", ErrSanitizeNotIdempotent, e.Key, e.First, e.Second)
}

func (e *SanitizeIdempotenceError) Unwrap() error { return ErrSanitizeNotIdempotent }

// ValidationContractError reports a validator that returned something other
// than a strict boolean.
type ValidationContractError struct {
	Key    string
	Result any
}

func (e *ValidationContractError) Error() string {
	return fmt.Sprintf("%v: key %q returned %T", ErrValidatorContract, e.Key, e.Result)
}

func (e *ValidationContractError) Unwrap() error { return ErrValidatorContract }

// ValidationError reports a value the validator rejected.
type ValidationError struct {
	Key   string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: key %q value %v", ErrValidationFailed, e.Key, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
