package scan

import (
	"errors"
	"fmt"

	"github.com/AntoineGS/tp2scan/internal/game"
)

// Sentinel errors for scan configuration and control
var (
	ErrScanInProgress = errors.New("a scan is already running")
	ErrNotDirectory   = errors.New("not a directory")
	ErrNotFound       = errors.New("does not exist")
	ErrNoBinary       = errors.New("listing tool not set")
)

// ConfigError reports a scan configuration that cannot be used. It always
// aborts a scan before any descriptor is read.
type ConfigError struct {
	Err   error
	Field string
	Path  string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(field, path string, err error) *ConfigError {
	return &ConfigError{
		Field: field,
		Path:  path,
		Err:   err,
	}
}

// FileError records one descriptor that could not be scanned for a target.
// It is counted and logged, never fatal to the other descriptors.
type FileError struct {
	Err    error
	Path   string
	Target game.Target
}

func (e *FileError) Error() string {
	return fmt.Sprintf("scan %s for %s: %v", e.Path, e.Target, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
