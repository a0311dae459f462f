package feeder

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
	StatusNotFound = 404
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PollInterval         = 100 * time.Millisecond
	PercentageMultiplier = 100
)

// Generation shape. Every invalidEvery-th entry has no multiplier and every
// unknownEvery-th entry names a map the fake metadata source does not know.
const (
	invalidEvery      = 7
	unknownEvery      = 11
	unknownHashPrefix = "0000"
)
