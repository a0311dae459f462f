package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithStream mounts the websocket stream handler at /stream.
func WithStream(h http.Handler) Option {
	return func(s *Server) {
		s.stream = h
	}
}

// WithDocs lets the docs package register its routes.
func WithDocs(register func(chi.Router)) Option {
	return func(s *Server) {
		s.docs = register
	}
}

// WithAllowedOrigins restricts cross-origin callers. Empty allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithObserveRateLimit caps observer posts per client IP.
func WithObserveRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		if requests > 0 {
			s.rateRequests = requests
		}
		if window > 0 {
			s.rateWindow = window
		}
	}
}
