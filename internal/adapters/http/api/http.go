// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/okian/saberlens/internal/adapters/repository"
	"github.com/okian/saberlens/internal/domain/correlate"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/internal/domain/normalize"
)

const (
	defaultObserveRateRequests = 600
	defaultObserveRateWindow   = time.Minute
)

// Observer receives what the browser-side observer sees.
type Observer interface {
	ObserveRequest(ctx context.Context, url string) (model.QueryContext, error)
	ObserveResponse(ctx context.Context, url string, payload []byte) (model.QueryContext, int, error)
	ObserveNavigation(ctx context.Context, url string) (model.QueryContext, error)
}

// Batches exposes stored enriched batches.
type Batches interface {
	CurrentBatch(ctx context.Context) (*model.EnrichedBatch, error)
	Batch(ctx context.Context, qc model.QueryContext) (*model.EnrichedBatch, error)
}

// Maps exposes the metadata cache. nil means the map is unavailable.
type Maps interface {
	ResolveMap(ctx context.Context, hash string) *model.MapMetadata
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Observer
	Batches
	Maps
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	observeHandler *ObserveHandler
	batchHandler   *BatchHandler
	mapHandler     *MapHandler

	stream         http.Handler
	docs           func(chi.Router)
	allowedOrigins []string
	rateRequests   int
	rateWindow     time.Duration
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		observeHandler: NewObserveHandler(deps),
		batchHandler:   NewBatchHandler(deps),
		mapHandler:     NewMapHandler(deps),
		rateRequests:   defaultObserveRateRequests,
		rateWindow:     defaultObserveRateWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/observe", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.rateRequests, s.rateWindow))
		r.Post("/request", MetricsMiddleware(s.observeHandler.HandleRequest, "observe_request"))
		r.Post("/response", MetricsMiddleware(s.observeHandler.HandleResponse, "observe_response"))
		r.Post("/navigation", MetricsMiddleware(s.observeHandler.HandleNavigation, "observe_navigation"))
	})

	r.Get("/batches/current", MetricsMiddleware(s.batchHandler.HandleCurrent, "batches_current"))
	r.Get("/batches/{subject}", MetricsMiddleware(s.batchHandler.HandleGet, "batches"))
	r.Get("/maps/{hash}", MetricsMiddleware(s.mapHandler.HandleGet, "maps"))
	r.Get("/maxscore/{notes}", MetricsMiddleware(s.mapHandler.HandleMaxScore, "maxscore"))

	if s.stream != nil {
		r.Method(http.MethodGet, "/stream", s.stream)
	}
	if s.docs != nil {
		s.docs(r)
	}
	return r
}

func (s *Server) origins() []string {
	if len(s.allowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.allowedOrigins
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinels to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, correlate.ErrUnrecognizedURL), errors.Is(err, normalize.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
