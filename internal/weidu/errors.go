package weidu

import (
	"errors"
	"fmt"
)

// Sentinel errors for listing-tool calls
var (
	ErrTimeout      = errors.New("listing tool timed out")
	ErrToolFailed   = errors.New("listing tool failed")
	ErrNoComponents = errors.New("listing tool reported no components")
)

// ToolError records a failed listing-tool call for one descriptor.
type ToolError struct {
	Err      error
	Op       string
	Path     string
	Language int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s %s (language %d): %v", e.Op, e.Path, e.Language, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewToolError creates a new ToolError
func NewToolError(op, path string, language int, err error) *ToolError {
	return &ToolError{
		Op:       op,
		Path:     path,
		Language: language,
		Err:      err,
	}
}
