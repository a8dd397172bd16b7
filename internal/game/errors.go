package game

import "errors"

var (
	// ErrUnknownTarget is returned for a target token outside bgee/bg2ee.
	ErrUnknownTarget = errors.New("unknown game target")
	// ErrUnknownMode is returned for a mode token outside bgee/bg2ee/eet.
	ErrUnknownMode = errors.New("unknown game mode")
)
