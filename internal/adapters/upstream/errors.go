package upstream

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream errors.
var (
	ErrNotFound    = errors.New("upstream: not found")
	ErrStatus      = errors.New("upstream: unexpected status")
	ErrDecode      = errors.New("upstream: malformed body")
	ErrBreakerOpen = errors.New("upstream: circuit open")
	ErrRateLimited = errors.New("upstream: rate limit wait aborted")
)

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.Code, e.Body)
}

// Is makes StatusError match ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}
