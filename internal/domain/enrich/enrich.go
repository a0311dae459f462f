// Package enrich merges normalized score entries with map metadata into
// batches and hands them to presentation while their context is active.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/internal/domain/scoring"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

const defaultSettleDelay = 800 * time.Millisecond

// MetadataResolver resolves map metadata; nil means unavailable.
type MetadataResolver interface {
	Resolve(ctx context.Context, hash string) *model.MapMetadata
}

// BatchStore keeps the latest batch per context.
type BatchStore interface {
	Put(ctx context.Context, batch *model.EnrichedBatch) error
	Get(ctx context.Context, qc model.QueryContext) (*model.EnrichedBatch, error)
}

// Presenter shows a batch to the user.
type Presenter interface {
	PublishBatch(ctx context.Context, batch *model.EnrichedBatch)
}

// ActiveContext reports whether a context is still the one being viewed.
type ActiveContext interface {
	IsActive(qc model.QueryContext) bool
}

// PublishHook runs after a batch was presented.
type PublishHook func(ctx context.Context, batch *model.EnrichedBatch)

// Aggregator builds and presents enriched batches.
type Aggregator struct {
	meta      MetadataResolver
	batches   BatchStore
	presenter Presenter
	active    ActiveContext
	onPublish PublishHook
	settle    time.Duration
	logger    logger.Logger
}

// New creates an aggregator.
func New(meta MetadataResolver, batches BatchStore, presenter Presenter, active ActiveContext, opts ...Option) *Aggregator {
	a := &Aggregator{
		meta:      meta,
		batches:   batches,
		presenter: presenter,
		active:    active,
		settle:    defaultSettleDelay,
		logger:    logger.Get().Named("enrich"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enrich resolves metadata for every distinct hash in scores, waits at least
// the settle delay, then stores the surviving records as the batch for qc.
// The batch is presented only if qc is still active.
func (a *Aggregator) Enrich(ctx context.Context, qc model.QueryContext, scores []model.RawScoreEntry) error {
	start := time.Now()
	settle := time.NewTimer(a.settle)
	defer settle.Stop()

	found := a.resolveAll(ctx, distinctHashes(scores))

	select {
	case <-settle.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	records := make([]model.EnrichedScoreRecord, 0, len(scores))
	for _, e := range scores {
		meta := found[strings.ToLower(e.Hash)]
		if meta == nil {
			continue
		}
		records = append(records, Record(e, meta))
	}
	if dropped := len(scores) - len(records); dropped > 0 {
		metrics.RecordEntriesDropped("metadata", dropped)
	}
	if len(records) == 0 {
		a.logger.Debug(ctx, "no entries survived enrichment", logger.String("context", qc.Key()))
		return nil
	}

	batch := &model.EnrichedBatch{
		ID:        uuid.NewString(),
		Context:   qc,
		Records:   records,
		CreatedAt: time.Now(),
	}
	if err := a.batches.Put(ctx, batch); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreBatch, err)
	}
	metrics.RecordEnrichLatency(float64(time.Since(start).Milliseconds()))

	a.present(ctx, batch)
	return nil
}

// Present publishes the stored batch for qc if there is one and qc is still
// active. It is the target of settled navigations.
func (a *Aggregator) Present(ctx context.Context, qc model.QueryContext) bool {
	batch, err := a.batches.Get(ctx, qc)
	if err != nil {
		return false
	}
	return a.present(ctx, batch)
}

func (a *Aggregator) present(ctx context.Context, batch *model.EnrichedBatch) bool {
	if !a.active.IsActive(batch.Context) {
		metrics.RecordBatchStale()
		a.logger.Debug(ctx, "discarding stale batch",
			logger.String("batch", batch.ID),
			logger.String("context", batch.Context.Key()))
		return false
	}
	a.presenter.PublishBatch(ctx, batch)
	metrics.RecordBatchPublished()
	if a.onPublish != nil {
		a.onPublish(ctx, batch)
	}
	return true
}

// resolveAll issues every lookup before waiting on any.
func (a *Aggregator) resolveAll(ctx context.Context, hashes []string) map[string]*model.MapMetadata {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]*model.MapMetadata, len(hashes))
	)
	for _, h := range hashes {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			meta := a.meta.Resolve(ctx, h)
			mu.Lock()
			out[h] = meta
			mu.Unlock()
		}(h)
	}
	wg.Wait()
	return out
}

// distinctHashes returns the case-folded hashes of scores in first-seen order.
func distinctHashes(scores []model.RawScoreEntry) []string {
	seen := make(map[string]struct{}, len(scores))
	out := make([]string, 0, len(scores))
	for _, e := range scores {
		h := strings.ToLower(e.Hash)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Record merges one entry with its map metadata.
func Record(e model.RawScoreEntry, meta *model.MapMetadata) model.EnrichedScoreRecord {
	rec := model.EnrichedScoreRecord{
		RawScoreEntry:   e,
		Map:             meta,
		Characteristic:  scoring.Characteristic(e.Difficulty.GameMode),
		DifficultyLabel: scoring.DifficultyLabel(e.Difficulty.Code),
		Mode:            scoring.ReplayMode(e.Difficulty.GameMode),
	}
	rec.Variant = meta.Variant(rec.Characteristic, rec.DifficultyLabel)

	rec.MaxScore = e.PayloadMax
	if rec.MaxScore <= 0 && rec.Variant != nil {
		rec.MaxScore = scoring.MaxScoreFromNoteCount(rec.Variant.Notes)
	}
	if acc, ok := scoring.Accuracy(e.BaseScore, rec.MaxScore, e.Multiplier); ok {
		rec.Accuracy = &acc
	}
	return rec
}
