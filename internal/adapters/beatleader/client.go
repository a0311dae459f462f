// Package beatleader is the client for the replay source.
package beatleader

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/saberlens/internal/adapters/upstream"
	"github.com/okian/saberlens/internal/domain/model"
)

// Client defaults.
const (
	DefaultBaseURL  = "https://api.beatleader.xyz"
	DefaultPageSize = 5000
)

// scoresResponse holds the fields consumed from /player/{id}/scores.
type scoresResponse struct {
	Data []struct {
		ID               int64                   `json:"id"`
		ModifiedScore    int                     `json:"modifiedScore"`
		AccLeft          float64                 `json:"accLeft"`
		AccRight         float64                 `json:"accRight"`
		Accuracy         float64                 `json:"accuracy"`
		FCAccuracy       float64                 `json:"fcAccuracy"`
		BadCuts          int                     `json:"badCuts"`
		MissedNotes      int                     `json:"missedNotes"`
		BombCuts         int                     `json:"bombCuts"`
		WallsHit         int                     `json:"wallsHit"`
		Pauses           int                     `json:"pauses"`
		ScoreImprovement *model.ScoreImprovement `json:"scoreImprovement"`
	} `json:"data"`
}

// Client lists a player's scores on the replay source.
type Client struct {
	baseURL  string
	pageSize int
	up       *upstream.Client
}

// New creates a client against baseURL (DefaultBaseURL when empty). A
// pageSize of zero uses DefaultPageSize.
func New(baseURL string, pageSize int, opts ...upstream.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		up:       upstream.New("beatleader", opts...),
	}
}

// PlayerScores returns the subject's scores on the chart, most recent first.
// A subject unknown to the source yields no candidates.
func (c *Client) PlayerScores(ctx context.Context, q model.ReplayQuery) ([]model.ReplayCandidate, error) {
	params := url.Values{}
	params.Set("sortBy", "date")
	params.Set("page", "1")
	params.Set("count", strconv.Itoa(c.pageSize))
	params.Set("search", q.Hash)
	params.Set("diff", q.Difficulty)
	params.Set("mode", q.Mode)
	reqURL := fmt.Sprintf("%s/player/%s/scores?%s", c.baseURL, url.PathEscape(q.SubjectID), params.Encode())

	var resp scoresResponse
	if err := c.up.GetJSON(ctx, reqURL, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scores for %s: %w", q.SubjectID, err)
	}

	out := make([]model.ReplayCandidate, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, model.ReplayCandidate{
			ModifiedScore: d.ModifiedScore,
			Summary: model.ReplaySummary{
				ID:          d.ID,
				AccLeft:     d.AccLeft,
				AccRight:    d.AccRight,
				Accuracy:    d.Accuracy,
				FCAccuracy:  d.FCAccuracy,
				BadCuts:     d.BadCuts,
				MissedNotes: d.MissedNotes,
				BombCuts:    d.BombCuts,
				WallsHit:    d.WallsHit,
				Pauses:      d.Pauses,
				Improvement: d.ScoreImprovement,
			},
		})
	}
	return out, nil
}
