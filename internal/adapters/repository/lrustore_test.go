package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

func batchFor(subject string, page int) *model.EnrichedBatch {
	return &model.EnrichedBatch{
		ID:        fmt.Sprintf("%s-%d", subject, page),
		Context:   model.QueryContext{SubjectID: subject, Page: page, Sort: model.SortTop},
		CreatedAt: time.Now(),
	}
}

func TestLRUStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store, err := NewLRUStore(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	qc := model.QueryContext{SubjectID: "42", Page: 1, Sort: model.SortTop}
	if _, err := store.Get(ctx, qc); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, batchFor("42", 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Get(ctx, qc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "42-1" {
		t.Errorf("expected batch 42-1, got %s", got.ID)
	}

	// Same context replaces.
	replacement := batchFor("42", 1)
	replacement.ID = "42-1b"
	_ = store.Put(ctx, replacement)
	got, _ = store.Get(ctx, qc)
	if got.ID != "42-1b" {
		t.Errorf("expected replacement batch, got %s", got.ID)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	// Sort is part of the key.
	recent := model.QueryContext{SubjectID: "42", Page: 1, Sort: model.SortRecent}
	if _, err := store.Get(ctx, recent); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other sort, got %v", err)
	}
}

func TestLRUStore_RejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	store, _ := NewLRUStore(ctx)
	defer store.Close()

	if err := store.Put(ctx, nil); !errors.Is(err, ErrInvalidBatch) {
		t.Errorf("expected ErrInvalidBatch for nil, got %v", err)
	}
	if err := store.Put(ctx, &model.EnrichedBatch{ID: "x"}); !errors.Is(err, ErrInvalidBatch) {
		t.Errorf("expected ErrInvalidBatch for zero context, got %v", err)
	}
}

func TestLRUStore_Eviction(t *testing.T) {
	ctx := context.Background()
	store, err := NewLRUStore(ctx, WithCapacity(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	_ = store.Put(ctx, batchFor("a", 1))
	_ = store.Put(ctx, batchFor("b", 1))
	// Touch a so b is the oldest.
	if _, err := store.Get(ctx, batchFor("a", 1).Context); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = store.Put(ctx, batchFor("c", 1))

	if count := store.Count(ctx); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	if _, err := store.Get(ctx, batchFor("b", 1).Context); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected b evicted, got %v", err)
	}
	if _, err := store.Get(ctx, batchFor("a", 1).Context); err != nil {
		t.Errorf("expected a kept, got %v", err)
	}
}

func TestLRUStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, _ := NewLRUStore(ctx, WithCapacity(1000))
	defer store.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for p := 1; p <= 50; p++ {
				b := batchFor(fmt.Sprintf("s%d", g), p)
				_ = store.Put(ctx, b)
				if _, err := store.Get(ctx, b.Context); err != nil {
					t.Errorf("expected batch after put: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	if count := store.Count(ctx); count != 400 {
		t.Errorf("expected count 400, got %d", count)
	}
}

func TestLRUStore_CloseIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store, _ := NewLRUStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	cancel()
	if err := store.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("unexpected error on second close: %v", err)
	}
}
