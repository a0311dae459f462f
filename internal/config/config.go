// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and SABERLENS_ env vars over the defaults.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects json or console output.
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir is the badger directory. Empty keeps the store in memory.
	DataDir string `koanf:"data_dir"`

	// Upstream base URLs.
	BeatSaverBaseURL  string `koanf:"beatsaver_base_url" validate:"required,url"`
	BeatLeaderBaseURL string `koanf:"beatleader_base_url" validate:"required,url"`

	// HTTPTimeoutMS bounds a single upstream request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms" validate:"gt=0"`

	// SettleDelayMS is the minimum wait before a batch is presented.
	SettleDelayMS int `koanf:"settle_delay_ms" validate:"gte=0"`

	// NavigationDelayMS delays the trigger after a profile navigation.
	NavigationDelayMS int `koanf:"navigation_delay_ms" validate:"gte=0"`

	// PersistDebounceMS coalesces metadata snapshot writes.
	PersistDebounceMS int `koanf:"persist_debounce_ms" validate:"gte=0"`

	// ReplayCacheTTL expires stored replay summaries. Zero keeps them forever.
	ReplayCacheTTL time.Duration `koanf:"replay_cache_ttl" validate:"gte=0"`

	// ReplayPageSize is the page size used when listing a player's scores.
	ReplayPageSize int `koanf:"replay_page_size" validate:"gt=0"`

	// FallbackRankThreshold caps the rank that gets a fallback replay link.
	FallbackRankThreshold int `koanf:"fallback_rank_threshold" validate:"gte=0"`

	// ReplayWorkerCount and ReplayQueueSize size the replay pipeline.
	ReplayWorkerCount int `koanf:"replay_worker_count" validate:"gte=0"`
	ReplayQueueSize   int `koanf:"replay_queue_size" validate:"gt=0"`

	// BatchStoreSize bounds the number of retained enriched batches.
	BatchStoreSize int `koanf:"batch_store_size" validate:"gt=0"`

	// Upstream rate limiting.
	UpstreamRPS   float64 `koanf:"upstream_rps" validate:"gt=0"`
	UpstreamBurst int     `koanf:"upstream_burst" validate:"gt=0"`

	// Circuit breaker settings shared by both upstream clients.
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio" validate:"gt=0,lte=1"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout" validate:"gt=0"`

	// AllowedOrigins feeds CORS and the websocket origin check. "*" allows all.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// ObserveRateLimit caps observation posts per client IP per ObserveRateWindow.
	ObserveRateLimit  int           `koanf:"observe_rate_limit" validate:"gt=0"`
	ObserveRateWindow time.Duration `koanf:"observe_rate_window" validate:"gt=0"`

	// MetricsEnabled turns prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshInterval paces the system metrics poller.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval" validate:"gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "json",
		Addr:                   ":9080",
		BeatSaverBaseURL:       "https://api.beatsaver.com",
		BeatLeaderBaseURL:      "https://api.beatleader.xyz",
		HTTPTimeoutMS:          10_000,
		SettleDelayMS:          800,
		NavigationDelayMS:      1000,
		PersistDebounceMS:      1000,
		ReplayCacheTTL:         720 * time.Hour,
		ReplayPageSize:         5000,
		FallbackRankThreshold:  500,
		ReplayWorkerCount:      8,
		ReplayQueueSize:        1024,
		BatchStoreSize:         256,
		UpstreamRPS:            10,
		UpstreamBurst:          20,
		BreakerFailureRatio:    0.6,
		BreakerMinRequests:     10,
		BreakerOpenTimeout:     2 * time.Minute,
		AllowedOrigins:         []string{"*"},
		ObserveRateLimit:       600,
		ObserveRateWindow:      time.Minute,
		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// SettleDelay returns SettleDelayMS as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// NavigationDelay returns NavigationDelayMS as a duration.
func (c *Config) NavigationDelay() time.Duration {
	return time.Duration(c.NavigationDelayMS) * time.Millisecond
}

// PersistDebounce returns PersistDebounceMS as a duration.
func (c *Config) PersistDebounce() time.Duration {
	return time.Duration(c.PersistDebounceMS) * time.Millisecond
}
