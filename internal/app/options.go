package service

import (
	"time"

	"github.com/okian/saberlens/internal/adapters/upstream"
	"github.com/okian/saberlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir stores the caches in a badger directory. Empty keeps them in memory.
func WithDataDir(dir string) Option {
	return func(s *Service) { s.dataDir = dir }
}

// WithBeatSaverBaseURL sets the metadata source base URL.
func WithBeatSaverBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.beatSaverURL = u
		}
	}
}

// WithBeatLeaderBaseURL sets the replay source base URL.
func WithBeatLeaderBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.beatLeaderURL = u
		}
	}
}

// WithUpstreamOptions adds options applied to both upstream clients.
func WithUpstreamOptions(opts ...upstream.Option) Option {
	return func(s *Service) { s.upstreamOpts = append(s.upstreamOpts, opts...) }
}

// WithSettleDelay sets the minimum wait before a batch is presented.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithNavigationDelay sets how long a navigation settles before it triggers.
func WithNavigationDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.navigationDelay = d
		}
	}
}

// WithPersistDebounce sets the metadata snapshot write debounce.
func WithPersistDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.persistDebounce = d
		}
	}
}

// WithReplayCacheTTL sets the replay entry expiry. Zero keeps entries forever.
func WithReplayCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.replayTTL = d
		}
	}
}

// WithReplayPageSize sets the page size of replay source listings.
func WithReplayPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.replayPageSize = n
		}
	}
}

// WithFallbackRankThreshold sets the rank cap for fallback replay links.
func WithFallbackRankThreshold(rank int) Option {
	return func(s *Service) {
		if rank >= 0 {
			s.fallbackRank = rank
		}
	}
}

// WithWorkerCount sets the number of replay workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the replay job queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBatchStoreSize sets how many enriched batches are retained.
func WithBatchStoreSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchStoreSize = size
		}
	}
}

// WithAllowedOrigins restricts websocket origins. "*" allows all.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Service) { s.allowedOrigins = origins }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
