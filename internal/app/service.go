// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/saberlens/internal/adapters/beatleader"
	"github.com/okian/saberlens/internal/adapters/beatsaver"
	"github.com/okian/saberlens/internal/adapters/http/stream"
	eventqueue "github.com/okian/saberlens/internal/adapters/mq/queue"
	workerpool "github.com/okian/saberlens/internal/adapters/mq/worker"
	"github.com/okian/saberlens/internal/adapters/repository"
	"github.com/okian/saberlens/internal/adapters/storage"
	"github.com/okian/saberlens/internal/adapters/upstream"
	"github.com/okian/saberlens/internal/domain/correlate"
	"github.com/okian/saberlens/internal/domain/enrich"
	"github.com/okian/saberlens/internal/domain/metacache"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/internal/domain/normalize"
	"github.com/okian/saberlens/internal/domain/replay"
	"github.com/okian/saberlens/internal/domain/replaycache"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

const (
	defaultSettleDelay     = 800 * time.Millisecond
	defaultNavigationDelay = time.Second
	defaultPersistDebounce = time.Second
	defaultReplayTTL       = 720 * time.Hour
	defaultReplayPageSize  = 5000
	defaultFallbackRank    = 500
	defaultWorkerCount     = 8
	defaultQueueSize       = 1024
	defaultBatchStoreSize  = 256
)

// Service wires the caches, the correlator, the aggregator and the replay
// pipeline, and implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      storage.Store
	maps       *metacache.Service
	replays    *replaycache.Service
	correlator *correlate.Correlator
	batches    *repository.LRUStore
	hub        *stream.Hub
	aggregator *enrich.Aggregator
	resolver   *replay.Resolver
	jobs       *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	dataDir         string
	beatSaverURL    string
	beatLeaderURL   string
	upstreamOpts    []upstream.Option
	settleDelay     time.Duration
	navigationDelay time.Duration
	persistDebounce time.Duration
	replayTTL       time.Duration
	replayPageSize  int
	fallbackRank    int
	workerCount     int
	queueSize       int
	batchStoreSize  int
	allowedOrigins  []string

	// State
	started bool
	baseCtx context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup

	// replaysDropped counts replay jobs the queue refused.
	replaysDropped atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		beatSaverURL:    beatsaver.DefaultBaseURL,
		beatLeaderURL:   beatleader.DefaultBaseURL,
		settleDelay:     defaultSettleDelay,
		navigationDelay: defaultNavigationDelay,
		persistDebounce: defaultPersistDebounce,
		replayTTL:       defaultReplayTTL,
		replayPageSize:  defaultReplayPageSize,
		fallbackRank:    defaultFallbackRank,
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		batchStoreSize:  defaultBatchStoreSize,
		allowedOrigins:  []string{"*"},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and starts every component. The hub is created here
// but served by the caller's supervisor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting enrichment service...")

	store, err := storage.Open(storage.WithDir(s.dataDir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = store

	batches, err := repository.NewLRUStore(ctx, repository.WithCapacity(s.batchStoreSize))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("batch store: %w", err)
	}
	s.batches = batches

	// Triggered and async work outlives the request that started it.
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	s.maps = metacache.New(ctx,
		beatsaver.New(s.beatSaverURL, s.upstreamOpts...),
		metacache.WithStore(store),
		metacache.WithPersistDebounce(s.persistDebounce),
	)
	s.replays = replaycache.New(
		beatleader.New(s.beatLeaderURL, s.replayPageSize, s.upstreamOpts...),
		store,
		replaycache.WithTTL(s.replayTTL),
	)
	s.resolver = replay.New(s.replays, replay.WithFallbackRankThreshold(s.fallbackRank))
	s.hub = stream.NewHub(stream.WithAllowedOrigins(s.allowedOrigins...))

	s.correlator = correlate.New(s.baseCtx,
		correlate.WithNavigationDelay(s.navigationDelay),
		correlate.WithTrigger(s.onNavigate),
	)
	s.aggregator = enrich.New(s.maps, s.batches, s.hub, s.correlator,
		enrich.WithSettleDelay(s.settleDelay),
		enrich.WithPublishHook(s.dispatchReplays),
	)

	s.jobs = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobs, s.resolver, s.hub, s.correlator)
	s.workerPool.Start(s.baseCtx)

	s.started = true
	s.logger.Info(ctx, "enrichment service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("batchStoreSize", s.batchStoreSize),
		logger.Int("cachedMaps", s.maps.Len()),
		logger.String("dataDir", s.dataDir),
	)

	return nil
}

// Stop gracefully shuts down the service. Background enrichment is
// cancelled and awaited before the caches are flushed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping enrichment service...")

	s.correlator.Close()
	s.cancel()
	s.pending.Wait()

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.maps.Close(); err != nil {
		s.logger.Warn(ctx, "metadata cache flush failed", logger.Error(err))
	}
	if err := s.batches.Close(); err != nil {
		s.logger.Warn(ctx, "batch store close failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}

	s.logger.Info(ctx, "enrichment service stopped")
}

// Hub returns the presentation stream. It is nil before Start.
func (s *Service) Hub() *stream.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// ObserveRequest records the context of a scores API request.
func (s *Service) ObserveRequest(_ context.Context, rawURL string) (model.QueryContext, error) {
	c, err := s.components()
	if err != nil {
		return model.QueryContext{}, err
	}
	qc, ok := c.correlator.ObserveRequest(rawURL)
	if !ok {
		return qc, fmt.Errorf("%w: %s", correlate.ErrUnrecognizedURL, rawURL)
	}
	return qc, nil
}

// ObserveResponse normalizes a completed scores response and enriches it in
// the background. It returns the parsed context and the number of retained
// entries.
func (s *Service) ObserveResponse(ctx context.Context, rawURL string, payload []byte) (model.QueryContext, int, error) {
	qc, err := s.ObserveRequest(ctx, rawURL)
	if err != nil {
		return qc, 0, err
	}

	scores, err := normalize.Normalize(payload)
	if err != nil {
		return qc, 0, err
	}

	c, err := s.track()
	if err != nil {
		return qc, 0, err
	}

	go func() {
		defer s.pending.Done()
		if err := c.aggregator.Enrich(c.baseCtx, qc, scores); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(c.baseCtx, "enrichment failed",
				logger.String("context", qc.Key()),
				logger.Error(err),
			)
		}
	}()

	return qc, len(scores), nil
}

// ObserveNavigation records a profile page navigation.
func (s *Service) ObserveNavigation(_ context.Context, rawURL string) (model.QueryContext, error) {
	c, err := s.components()
	if err != nil {
		return model.QueryContext{}, err
	}
	qc, ok := c.correlator.ObserveNavigation(rawURL)
	if !ok {
		return qc, fmt.Errorf("%w: %s", correlate.ErrUnrecognizedURL, rawURL)
	}
	return qc, nil
}

// CurrentBatch returns the stored batch for the active context.
func (s *Service) CurrentBatch(ctx context.Context) (*model.EnrichedBatch, error) {
	c, err := s.components()
	if err != nil {
		return nil, err
	}
	qc, ok := c.correlator.Active()
	if !ok {
		return nil, fmt.Errorf("%w: %w", repository.ErrNotFound, ErrNoContext)
	}
	return c.batches.Get(ctx, qc)
}

// Batch returns the stored batch for qc.
func (s *Service) Batch(ctx context.Context, qc model.QueryContext) (*model.EnrichedBatch, error) {
	c, err := s.components()
	if err != nil {
		return nil, err
	}
	return c.batches.Get(ctx, qc)
}

// ResolveMap resolves a map through the metadata cache.
func (s *Service) ResolveMap(ctx context.Context, hash string) *model.MapMetadata {
	c, err := s.components()
	if err != nil {
		return nil
	}
	return c.maps.Resolve(ctx, hash)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"batchStoreSize": s.batchStoreSize,
		"replaysDropped": s.replaysDropped.Load(),
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.jobs.Len(ctx)

		stats["queueLength"] = queueLen
		stats["storedBatches"] = s.batches.Count(ctx)
		stats["cachedMaps"] = s.maps.Len()
		stats["inflightMaps"] = s.maps.InFlight()
		stats["streamClients"] = s.hub.ClientCount()
		stats["replaysProcessed"] = s.workerPool.Processed()
		if qc, ok := s.correlator.Active(); ok {
			stats["activeContext"] = qc.Key()
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerActiveCount(s.workerPool.Size())
	}

	return stats
}

// onNavigate presents the stored batch for a context the user navigated to.
func (s *Service) onNavigate(ctx context.Context, qc model.QueryContext) {
	c, err := s.components()
	if err != nil {
		return
	}
	if !c.aggregator.Present(ctx, qc) {
		s.logger.Debug(ctx, "no stored batch for navigation", logger.String("context", qc.Key()))
	}
}

// dispatchReplays queues one replay job per record of a presented batch.
func (s *Service) dispatchReplays(ctx context.Context, batch *model.EnrichedBatch) {
	c, err := s.components()
	if err != nil {
		return
	}
	for i := range batch.Records {
		job := eventqueue.Job{BatchID: batch.ID, Context: batch.Context, Record: batch.Records[i]}
		if err := c.jobs.Enqueue(ctx, job); err != nil {
			// The rest of the batch would hit the same full or closed queue.
			dropped := len(batch.Records) - i
			s.replaysDropped.Add(int64(dropped))
			metrics.RecordEntriesDropped("replay_dispatch", dropped)
			s.logger.Warn(ctx, "replay jobs dropped",
				logger.String("context", batch.Context.Key()),
				logger.Int("fromIndex", batch.Records[i].Index),
				logger.Int("dropped", dropped),
				logger.Error(err),
			)
			return
		}
	}
}

// components is a consistent view of the started components.
type components struct {
	baseCtx    context.Context
	maps       *metacache.Service
	correlator *correlate.Correlator
	batches    *repository.LRUStore
	aggregator *enrich.Aggregator
	jobs       *eventqueue.InMemoryQueue
}

func (s *Service) components() (components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.componentsLocked()
}

// track is components plus one pending background task, which the caller
// must mark done.
func (s *Service) track() (components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.componentsLocked()
	if err == nil {
		s.pending.Add(1)
	}
	return c, err
}

func (s *Service) componentsLocked() (components, error) {
	if !s.started {
		return components{}, ErrNotStarted
	}
	return components{
		baseCtx:    s.baseCtx,
		maps:       s.maps,
		correlator: s.correlator,
		batches:    s.batches,
		aggregator: s.aggregator,
		jobs:       s.jobs,
	}, nil
}
