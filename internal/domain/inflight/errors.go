package inflight

import "errors"

// Sentinel kinds for in-flight errors.
var (
	ErrPanicked  = errors.New("inflight fetch panicked")
	ErrAbandoned = errors.New("inflight wait abandoned")
)
