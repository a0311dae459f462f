package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/saberlens/internal/domain/scoring"
)

type maxScoreResponse struct {
	Notes    int `json:"notes"`
	MaxScore int `json:"maxScore"`
}

// MapHandler serves map metadata and the max score helper.
type MapHandler struct {
	deps Maps
}

// NewMapHandler creates a new map handler.
func NewMapHandler(deps Maps) *MapHandler {
	return &MapHandler{deps: deps}
}

// HandleGet handles GET /maps/{hash}.
func (h *MapHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	meta := h.deps.ResolveMap(r.Context(), hash)
	if meta == nil {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// HandleMaxScore handles GET /maxscore/{notes}.
func (h *MapHandler) HandleMaxScore(w http.ResponseWriter, r *http.Request) {
	notes, err := strconv.Atoi(chi.URLParam(r, "notes"))
	if err != nil || notes < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, maxScoreResponse{Notes: notes, MaxScore: scoring.MaxScoreFromNoteCount(notes)})
}
