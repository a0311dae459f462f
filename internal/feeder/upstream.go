package feeder

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/saberlens/internal/domain/scoring"
)

type mapDoc struct {
	ID       string `json:"id"`
	Metadata struct {
		BPM float64 `json:"bpm"`
	} `json:"metadata"`
	Versions []mapVersion `json:"versions"`
}

type mapVersion struct {
	Hash  string    `json:"hash"`
	Diffs []mapDiff `json:"diffs"`
}

type mapDiff struct {
	Characteristic string `json:"characteristic"`
	Difficulty     string `json:"difficulty"`
	Notes          int    `json:"notes"`
}

// NewUpstream returns a handler that stands in for both external sources.
// The metadata source knows every hash except those with the unknown
// prefix; the replay source has no replays.
//
//	GET /maps/hash/{hash}
//	GET /player/{id}/scores
func NewUpstream() http.Handler {
	r := chi.NewRouter()
	r.Get("/maps/hash/{hash}", func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")
		if len(hash) < len(unknownHashPrefix) || strings.HasPrefix(hash, unknownHashPrefix) {
			http.NotFound(w, r)
			return
		}
		doc := mapDoc{ID: strings.ToLower(hash[:5])}
		doc.Metadata.BPM = 120
		v := mapVersion{Hash: strings.ToLower(hash)}
		for _, code := range difficultyCodes {
			label := scoring.DifficultyLabel(code)
			v.Diffs = append(v.Diffs, mapDiff{Characteristic: "Standard", Difficulty: label, Notes: NotesFor(hash, label)})
		}
		doc.Versions = []mapVersion{v}
		writeJSON(w, doc)
	})
	r.Get("/player/{id}/scores", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"data": []any{}})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
