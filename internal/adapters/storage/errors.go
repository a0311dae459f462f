package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound = errors.New("key not found")
	ErrOpen     = errors.New("open store failed")
	ErrCorrupt  = errors.New("stored value is corrupt")
)
