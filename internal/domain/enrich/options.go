package enrich

import (
	"time"

	"github.com/okian/saberlens/pkg/logger"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithSettleDelay sets the minimum time between receiving scores and
// building the batch.
func WithSettleDelay(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.settle = d
		}
	}
}

// WithPublishHook runs h after each presented batch.
func WithPublishHook(h PublishHook) Option {
	return func(a *Aggregator) {
		a.onPublish = h
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}
