package replay

import "github.com/okian/saberlens/pkg/logger"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithFallbackRankThreshold sets the worst rank that still gets a fallback
// replay link.
func WithFallbackRankThreshold(rank int) Option {
	return func(r *Resolver) {
		if rank > 0 {
			r.rankThreshold = rank
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
