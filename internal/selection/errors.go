package selection

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for selection operations
var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrUnknownGroup     = errors.New("unknown mod")
	ErrTabDisabled      = errors.New("game is not enabled by the current mode")
)

// CycleError reports checked components whose dependencies form a cycle, so
// no install order satisfies all of them.
type CycleError struct {
	// Cycle holds the components left once every orderable one was removed.
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}
