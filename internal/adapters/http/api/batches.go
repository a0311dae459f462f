package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/saberlens/internal/domain/model"
)

// BatchHandler serves stored enriched batches.
type BatchHandler struct {
	deps Batches
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps Batches) *BatchHandler {
	return &BatchHandler{deps: deps}
}

// HandleCurrent handles GET /batches/current.
func (h *BatchHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.CurrentBatch(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleGet handles GET /batches/{subject}?page=&sort=.
func (h *BatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	qc := model.QueryContext{
		SubjectID: chi.URLParam(r, "subject"),
		Page:      1,
		Sort:      model.ParseSortMode(r.URL.Query().Get("sort")),
	}
	if p := r.URL.Query().Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		qc.Page = page
	}
	b, err := h.deps.Batch(r.Context(), qc)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
