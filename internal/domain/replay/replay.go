// Package replay decides which replay, if any, backs an enriched record and
// builds the link to watch it.
package replay

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/internal/domain/scoring"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

// Viewer endpoints.
const (
	VerifiedViewerURL = "https://replay.beatleader.xyz/"
	FallbackViewerURL = "https://www.replay.beatleader.xyz/"

	defaultFallbackRankThreshold = 500
)

// SummaryResolver finds the replay summary for an exact attempt. A nil
// summary with nil error means no match.
type SummaryResolver interface {
	Resolve(ctx context.Context, key model.ReplayKey) (*model.ReplaySummary, error)
}

// Resolver resolves replays for single records.
type Resolver struct {
	replays       SummaryResolver
	rankThreshold int
	logger        logger.Logger
}

// New creates a resolver backed by replays.
func New(replays SummaryResolver, opts ...Option) *Resolver {
	r := &Resolver{
		replays:       replays,
		rankThreshold: defaultFallbackRankThreshold,
		logger:        logger.Get().Named("replay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key builds the replay key for rec viewed in qc.
func Key(qc model.QueryContext, rec model.EnrichedScoreRecord) model.ReplayKey {
	return model.ReplayKey{
		SubjectID:     qc.SubjectID,
		Hash:          rec.Hash,
		Difficulty:    label(rec),
		ModifiedScore: rec.ModifiedScore,
		Mode:          scoring.ReplayMode(rec.Difficulty.GameMode),
	}
}

// Resolve returns the replay resolution for rec. Lookup errors are logged
// and treated as no verified replay.
func (r *Resolver) Resolve(ctx context.Context, qc model.QueryContext, rec model.EnrichedScoreRecord) model.ReplayResolution {
	res := model.ReplayResolution{
		Context: qc,
		Index:   rec.Index,
		Hash:    rec.Hash,
		Status:  model.ReplayNone,
	}
	if rec.ModifiedScore == 0 {
		metrics.RecordReplayResolution(string(res.Status))
		return res
	}

	key := Key(qc, rec)
	summary, err := r.replays.Resolve(ctx, key)
	if err != nil {
		r.logger.Warn(ctx, "replay lookup failed",
			logger.String("hash", rec.Hash),
			logger.Int("index", rec.Index),
			logger.Error(err))
		metrics.RecordErrorByComponent("replay", "lookup")
	}

	switch {
	case summary != nil:
		res.Status = model.ReplayVerified
		res.Summary = summary
		res.Comparison = Compare(summary)
		res.ReplayURL = VerifiedURL(summary.ID)
	case rec.PP > 0 && rec.Rank <= r.rankThreshold && rec.Map != nil && rec.Map.ExternalID != "":
		res.Status = model.ReplayFallback
		res.ReplayURL = FallbackURL(rec.Map.ExternalID, key.Difficulty, qc.SubjectID)
	}
	metrics.RecordReplayResolution(string(res.Status))
	return res
}

// Compare restates the source's improvement against the prior best. It is
// nil when the source reports no accuracy change.
func Compare(s *model.ReplaySummary) *model.Comparison {
	if s == nil || s.Improvement == nil || s.Improvement.Accuracy == 0 {
		return nil
	}
	imp := s.Improvement
	return &model.Comparison{
		AccuracyGain:   scoring.Round2(imp.Accuracy * 100),
		AccLeftGain:    scoring.Round2(imp.AccLeft),
		AccRightGain:   scoring.Round2(imp.AccRight),
		PreviousMisses: s.MissedNotes + s.BadCuts - (imp.MissedNotes + imp.BadCuts),
	}
}

// VerifiedURL links the viewer to a specific stored replay.
func VerifiedURL(scoreID int64) string {
	return VerifiedViewerURL + "?scoreId=" + strconv.FormatInt(scoreID, 10)
}

// FallbackURL links the viewer to the player's best replay on a chart.
func FallbackURL(mapID, difficulty, playerID string) string {
	return fmt.Sprintf("%s?id=%s&difficulty=%s&playerID=%s",
		FallbackViewerURL, url.QueryEscape(mapID), url.QueryEscape(difficulty), url.QueryEscape(playerID))
}

// label prefers the metadata source's difficulty name.
func label(rec model.EnrichedScoreRecord) string {
	if rec.Variant != nil && rec.Variant.Difficulty != "" {
		return rec.Variant.Difficulty
	}
	if rec.DifficultyLabel != "" {
		return rec.DifficultyLabel
	}
	return scoring.DifficultyLabel(rec.Difficulty.Code)
}
