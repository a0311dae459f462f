package correlate

import "errors"

// ErrUnrecognizedURL marks a URL that matches neither the score page nor the
// scores API.
var ErrUnrecognizedURL = errors.New("url is not a recognized scores page")
