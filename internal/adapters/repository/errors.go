package repository

import "errors"

// Sentinel kinds for batch store errors.
var (
	ErrNotFound        = errors.New("batch not found")
	ErrInvalidBatch    = errors.New("batch has no context")
	ErrInvalidCapacity = errors.New("invalid batch store capacity")
)
