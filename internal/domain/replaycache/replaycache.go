// Package replaycache resolves replay summaries for exact attempts and keeps
// every match in the key-value store.
package replaycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/saberlens/internal/adapters/storage"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

const (
	keyPrefix  = "replay:"
	cacheName  = "replay"
	defaultTTL = 720 * time.Hour
)

// Source lists a subject's attempts on one chart, most recent first.
type Source interface {
	PlayerScores(ctx context.Context, q model.ReplayQuery) ([]model.ReplayCandidate, error)
}

// Service is the replay cache. Misses are never stored.
type Service struct {
	source Source
	store  storage.Store
	ttl    time.Duration
	logger logger.Logger
}

// New creates a replay cache over source persisting into store.
func New(source Source, store storage.Store, opts ...Option) *Service {
	s := &Service{
		source: source,
		store:  store,
		ttl:    defaultTTL,
		logger: logger.Get().Named("replaycache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the summary of the attempt identified by key. A nil
// summary with a nil error means the source has no attempt with exactly
// that modified score.
func (s *Service) Resolve(ctx context.Context, key model.ReplayKey) (*model.ReplaySummary, error) {
	storeKey := keyPrefix + key.String()

	var cached model.ReplaySummary
	err := storage.GetJSON(ctx, s.store, storeKey, &cached)
	switch {
	case err == nil:
		metrics.RecordCacheLookup(cacheName, "hit")
		return &cached, nil
	case errors.Is(err, storage.ErrCorrupt):
		s.logger.Warn(ctx, "discarding corrupt replay entry", logger.String("key", storeKey), logger.Error(err))
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	metrics.RecordCacheLookup(cacheName, "miss")

	candidates, err := s.source.PlayerScores(ctx, key.Query())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}

	match := pick(candidates, key.ModifiedScore)
	if match == nil {
		return nil, nil
	}

	if err := storage.SetJSON(ctx, s.store, storeKey, match, s.ttl); err != nil {
		// The match is still good for this caller.
		s.logger.Error(ctx, "replay entry write failed", logger.String("key", storeKey), logger.Error(err))
	}
	return match, nil
}

// pick returns the first candidate whose modified score equals score.
func pick(candidates []model.ReplayCandidate, score int) *model.ReplaySummary {
	for i := range candidates {
		if candidates[i].ModifiedScore == score {
			summary := candidates[i].Summary
			return &summary
		}
	}
	return nil
}
