// Package beatsaver is the client for the map metadata source.
package beatsaver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/saberlens/internal/adapters/upstream"
	"github.com/okian/saberlens/internal/domain/model"
)

// DefaultBaseURL is the public metadata API.
const DefaultBaseURL = "https://api.beatsaver.com"

// mapResponse holds the fields consumed from /maps/hash/{hash}.
type mapResponse struct {
	ID       string `json:"id"`
	Metadata struct {
		BPM float64 `json:"bpm"`
	} `json:"metadata"`
	Versions []struct {
		Hash  string `json:"hash"`
		Diffs []struct {
			Characteristic string `json:"characteristic"`
			Difficulty     string `json:"difficulty"`
			Notes          int    `json:"notes"`
		} `json:"diffs"`
	} `json:"versions"`
}

// Client resolves maps by hash.
type Client struct {
	baseURL string
	up      *upstream.Client
}

// New creates a client against baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...upstream.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		up:      upstream.New("beatsaver", opts...),
	}
}

// MapByHash fetches the latest version of the map with hash. A map the
// source does not know returns an error wrapping model.ErrNotFound. The
// result is not validated here.
func (c *Client) MapByHash(ctx context.Context, hash string) (*model.MapMetadata, error) {
	var resp mapResponse
	err := c.up.GetJSON(ctx, c.baseURL+"/maps/hash/"+url.PathEscape(hash), &resp)
	if errors.Is(err, upstream.ErrNotFound) {
		return nil, fmt.Errorf("map %s: %w", hash, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", hash, err)
	}

	meta := &model.MapMetadata{
		Hash:       hash,
		ExternalID: resp.ID,
		BPM:        resp.Metadata.BPM,
	}
	if n := len(resp.Versions); n > 0 {
		for _, d := range resp.Versions[n-1].Diffs {
			meta.Difficulties = append(meta.Difficulties, model.DifficultyVariant{
				Characteristic: d.Characteristic,
				Difficulty:     d.Difficulty,
				Notes:          d.Notes,
			})
		}
	}
	return meta, nil
}
