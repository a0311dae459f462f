package replaycache

import "errors"

var (
	ErrSource = errors.New("replay source lookup failed")
	ErrStore  = errors.New("replay store read failed")
)
