// Package normalize turns observed score payloads into validated
// RawScoreEntry values.
package normalize

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/metrics"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// payload mirrors the score site's player-scores response.
type payload struct {
	PlayerScores []playerScore `json:"playerScores"`
}

type playerScore struct {
	Leaderboard *leaderboard `json:"leaderboard"`
	Score       *score       `json:"score"`
}

type leaderboard struct {
	SongHash   string            `json:"songHash"`
	Difficulty *model.Difficulty `json:"difficulty"`
	MaxScore   int               `json:"maxScore"`
}

type score struct {
	BaseScore     int     `json:"baseScore"`
	ModifiedScore int     `json:"modifiedScore"`
	Multiplier    float64 `json:"multiplier"`
	PP            float64 `json:"pp"`
	Rank          int     `json:"rank"`
}

// candidate is the flattened entry checked against the required-field
// invariant. Zero values count as missing.
type candidate struct {
	Hash          string            `validate:"required"`
	Difficulty    *model.Difficulty `validate:"required"`
	BaseScore     int               `validate:"required"`
	ModifiedScore int               `validate:"required"`
	Multiplier    float64           `validate:"required"`
}

// Normalize decodes body and returns its valid entries in payload order.
// Each entry keeps its original ordinal in Index. Invalid entries are
// dropped; only an undecodable body is an error.
func Normalize(body []byte) ([]model.RawScoreEntry, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	out := make([]model.RawScoreEntry, 0, len(p.PlayerScores))
	for i, ps := range p.PlayerScores {
		entry, ok := convert(i, ps)
		if !ok {
			continue
		}
		out = append(out, entry)
	}
	metrics.RecordEntriesDropped("normalize", len(p.PlayerScores)-len(out))
	return out, nil
}

func convert(idx int, ps playerScore) (model.RawScoreEntry, bool) {
	if ps.Leaderboard == nil || ps.Score == nil {
		return model.RawScoreEntry{}, false
	}

	c := candidate{
		Hash:          strings.TrimSpace(ps.Leaderboard.SongHash),
		Difficulty:    ps.Leaderboard.Difficulty,
		BaseScore:     ps.Score.BaseScore,
		ModifiedScore: ps.Score.ModifiedScore,
		Multiplier:    ps.Score.Multiplier,
	}
	if err := validate.Struct(c); err != nil {
		return model.RawScoreEntry{}, false
	}

	return model.RawScoreEntry{
		Index:         idx,
		Hash:          c.Hash,
		Difficulty:    *c.Difficulty,
		BaseScore:     c.BaseScore,
		ModifiedScore: c.ModifiedScore,
		Multiplier:    c.Multiplier,
		PP:            ps.Score.PP,
		Rank:          ps.Score.Rank,
		PayloadMax:    ps.Leaderboard.MaxScore,
	}, true
}
