package metacache

import "errors"

var (
	ErrFetch           = errors.New("metadata fetch failed")
	ErrInvalidMetadata = errors.New("metadata failed validation")
)
