package repository

import "time"

// Option applies a configuration option to the LRUStore.
type Option func(*LRUStore)

// WithCapacity sets how many contexts are kept before eviction.
func WithCapacity(n int) Option {
	return func(s *LRUStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *LRUStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
