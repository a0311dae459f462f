package metacache

import (
	"time"

	"github.com/okian/saberlens/internal/adapters/storage"
	"github.com/okian/saberlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore persists the cache into s.
func WithStore(s storage.Store) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithPersistDebounce sets how long the cache must stay unchanged before a
// snapshot is written.
func WithPersistDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
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
