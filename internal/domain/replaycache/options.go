package replaycache

import (
	"time"

	"github.com/okian/saberlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTTL sets how long a stored replay entry lives. Zero keeps entries
// forever.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
