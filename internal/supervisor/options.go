package supervisor

import (
	"time"

	"github.com/okian/saberlens/pkg/logger"
)

type config struct {
	failureThreshold float64
	failureDecay     float64
	failureBackoff   time.Duration
	shutdownTimeout  time.Duration
}

// Option applies a configuration option to the Tree.
type Option func(*Tree, *config)

// WithFailureBackoff sets the pause after the failure threshold is crossed.
func WithFailureBackoff(d time.Duration) Option {
	return func(_ *Tree, c *config) {
		if d > 0 {
			c.failureBackoff = d
		}
	}
}

// WithShutdownTimeout bounds how long a service may take to stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(_ *Tree, c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tree, _ *config) {
		if l != nil {
			t.logger = l
		}
	}
}
