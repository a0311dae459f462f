package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/saberlens/internal/domain/model"
)

const maxObserveBody = 4 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// urlObservation is the body of request-start and navigation observations.
type urlObservation struct {
	URL string `json:"url" validate:"required,url"`
}

// responseObservation carries a completed scores response. Payload is the
// response body, either as JSON or as a JSON string holding it.
type responseObservation struct {
	URL     string          `json:"url" validate:"required,url"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type observeAck struct {
	Status  string             `json:"status"`
	Context model.QueryContext `json:"context"`
	Entries *int               `json:"entries,omitempty"`
}

// ObserveHandler handles observer posts.
type ObserveHandler struct {
	deps Observer
}

// NewObserveHandler creates a new observe handler.
func NewObserveHandler(deps Observer) *ObserveHandler {
	return &ObserveHandler{deps: deps}
}

// HandleRequest handles POST /observe/request.
func (h *ObserveHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req urlObservation
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	qc, err := h.deps.ObserveRequest(r.Context(), req.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, observeAck{Status: "accepted", Context: qc})
}

// HandleNavigation handles POST /observe/navigation.
func (h *ObserveHandler) HandleNavigation(w http.ResponseWriter, r *http.Request) {
	var req urlObservation
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	qc, err := h.deps.ObserveNavigation(r.Context(), req.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, observeAck{Status: "accepted", Context: qc})
}

// HandleResponse handles POST /observe/response. Enrichment runs after the
// reply is sent.
func (h *ObserveHandler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	var req responseObservation
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	payload, err := unwrapPayload(req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	qc, n, err := h.deps.ObserveResponse(r.Context(), req.URL, payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, observeAck{Status: "accepted", Context: qc, Entries: &n})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxObserveBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// unwrapPayload accepts the scores body inline or as a JSON string.
func unwrapPayload(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrBadRequest, err)
	}
	return []byte(s), nil
}
