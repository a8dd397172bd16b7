package config

import (
	"fmt"
	"strings"
)

// ValidatePath checks a path for values no file system accepts.
func ValidatePath(path string) error {
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains null byte")
	}

	return nil
}

// Validate checks every field and returns *ValidationErrors listing each
// invalid one.
func (a *AppConfig) Validate() error {
	errs := &ValidationErrors{}

	for _, f := range a.Fields() {
		if !f.Path {
			continue
		}
		if err := ValidatePath(f.Value); err != nil {
			errs.Add(NewFieldError(f.Key, f.Value, err))
		}
	}
	if _, err := a.GameMode(); err != nil {
		errs.Add(NewFieldError("mode", a.Mode, err))
	}
	if _, err := a.ListTimeout(); err != nil {
		errs.Add(NewFieldError("timeout", a.Timeout, err))
	}

	if errs.HasErrors() {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}

	return nil
}
