package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	ErrMalformedPayload = errors.New("malformed score payload")
)
