package correlate

import (
	"time"

	"github.com/okian/saberlens/pkg/logger"
)

// Option applies a configuration option to the Correlator.
type Option func(*Correlator)

// WithNavigationDelay sets how long a navigation must settle before the
// trigger runs.
func WithNavigationDelay(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithTrigger sets the function run when navigation settles on a new context.
func WithTrigger(t Trigger) Option {
	return func(c *Correlator) {
		if t != nil {
			c.trigger = t
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Correlator) {
		if l != nil {
			c.logger = l
		}
	}
}
