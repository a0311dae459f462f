// Package repository holds enriched batches keyed by query context.
package repository

import (
	"context"

	"github.com/okian/saberlens/internal/domain/model"
)

// Store provides read/write access to enriched batches.
type Store interface {
	// Put stores batch under its context, replacing any earlier batch for
	// the same context.
	Put(ctx context.Context, batch *model.EnrichedBatch) error

	// Get returns the batch stored for qc.
	// Returns ErrNotFound if there is none.
	Get(ctx context.Context, qc model.QueryContext) (*model.EnrichedBatch, error)

	// Count returns the number of stored batches.
	Count(ctx context.Context) int
}
