package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig wraps the *ValidationErrors returned by Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownKey is returned for a key Get and Set do not know.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrNonPositive rejects a zero or negative timeout.
	ErrNonPositive = errors.New("must be positive")
)

// ValidationErrors collects the bad settings of one config so they are
// reported together.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no invalid settings"
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

// Add records err; nil is ignored.
func (e *ValidationErrors) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// FieldError names the config key whose value was rejected. It reads like
// scan.ConfigError, so both layers report a bad setting the same way.
type FieldError struct {
	Field string // key as written in config.yaml
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func NewFieldError(field, value string, err error) *FieldError {
	return &FieldError{Field: field, Value: value, Err: err}
}
