package model

import "errors"

// Sentinel kinds shared across layers.
var (
	// ErrNotFound means a source confirmed it has no data for a key.
	ErrNotFound = errors.New("not found at source")
)
