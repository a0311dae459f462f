package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/metrics"
)

const (
	defaultCapacity              = 256
	defaultMetricsUpdateInterval = 5 * time.Second
	cacheName                    = "batch"
)

// LRUStore is a bounded in-memory Store. The least recently used context is
// evicted once capacity is reached.
type LRUStore struct {
	cache                 *lru.Cache[string, *model.EnrichedBatch]
	capacity              int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewLRUStore constructs the store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewLRUStore(ctx context.Context, opts ...Option) (*LRUStore, error) {
	s := &LRUStore{
		capacity:              defaultCapacity,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.NewWithEvict(s.capacity, func(string, *model.EnrichedBatch) {
		metrics.RecordCacheEviction(cacheName)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	}
	s.cache = cache

	s.startMetricsUpdater(ctx)
	return s, nil
}

// Put implements Store.
func (s *LRUStore) Put(_ context.Context, batch *model.EnrichedBatch) error {
	if batch == nil || batch.Context.IsZero() {
		return ErrInvalidBatch
	}
	s.cache.Add(batch.Context.Key(), batch)
	return nil
}

// Get implements Store.
func (s *LRUStore) Get(_ context.Context, qc model.QueryContext) (*model.EnrichedBatch, error) {
	b, ok := s.cache.Get(qc.Key())
	if !ok {
		metrics.RecordCacheLookup(cacheName, "miss")
		return nil, ErrNotFound
	}
	metrics.RecordCacheLookup(cacheName, "hit")
	return b, nil
}

// Count implements Store.
func (s *LRUStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the metrics updater.
func (s *LRUStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *LRUStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateCacheEntries(cacheName, s.cache.Len())
			}
		}
	}()
}
