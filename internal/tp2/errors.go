package tp2

import "errors"

// ErrInvalidRef is returned when a reference string cannot be parsed.
var ErrInvalidRef = errors.New("invalid reference")
