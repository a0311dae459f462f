package stream

import "github.com/okian/saberlens/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithAllowedOrigins restricts websocket upgrades to the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		h.origins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			h.origins[o] = struct{}{}
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
