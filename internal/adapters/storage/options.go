package storage

import "github.com/okian/saberlens/pkg/logger"

// Option applies a configuration option to the BadgerStore.
type Option func(*BadgerStore)

// WithDir persists the database under dir. Empty keeps it in memory.
func WithDir(dir string) Option {
	return func(s *BadgerStore) {
		s.dir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *BadgerStore) {
		if l != nil {
			s.logger = l
		}
	}
}
