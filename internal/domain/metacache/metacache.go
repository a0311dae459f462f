// Package metacache resolves map metadata by hash, caching both found maps
// and confirmed absence, and persisting the cache as one snapshot.
package metacache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/saberlens/internal/adapters/storage"
	"github.com/okian/saberlens/internal/domain/inflight"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

const (
	// SnapshotKey is the storage key of the persisted cache.
	SnapshotKey = "metadata:snapshot"

	defaultPersistDebounce = time.Second
	cacheName              = "metadata"
)

// Fetcher loads metadata from the source. Unknown hashes return an error
// wrapping model.ErrNotFound.
type Fetcher interface {
	MapByHash(ctx context.Context, hash string) (*model.MapMetadata, error)
}

// Service is the metadata cache. A nil map value marks a hash the source
// confirmed it does not know.
type Service struct {
	fetcher  Fetcher
	store    storage.Store
	logger   logger.Logger
	debounce time.Duration
	validate *validator.Validate
	inflight *inflight.Registry[*model.MapMetadata]

	mu      sync.Mutex
	entries map[string]*model.MapMetadata
	timer   *time.Timer
	dirty   bool

	writeMu sync.Mutex
}

// New creates the service and loads the persisted snapshot when a store is
// configured. A missing or unreadable snapshot starts an empty cache.
func New(ctx context.Context, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		logger:   logger.Get().Named("metacache"),
		debounce: defaultPersistDebounce,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		inflight: inflight.New[*model.MapMetadata](),
		entries:  make(map[string]*model.MapMetadata),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load(ctx)
	return s
}

func (s *Service) load(ctx context.Context) {
	if s.store == nil {
		return
	}
	snap := map[string]*model.MapMetadata{}
	err := storage.GetJSON(ctx, s.store, SnapshotKey, &snap)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return
	case err != nil:
		s.logger.Warn(ctx, "ignoring unreadable metadata snapshot", logger.Error(err))
		return
	}

	s.mu.Lock()
	for k, v := range snap {
		s.entries[strings.ToLower(k)] = v
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.UpdateCacheEntries(cacheName, n)
	s.logger.Info(ctx, "metadata snapshot loaded", logger.Int("entries", n))
}

// Resolve returns metadata for hash. nil means the map is unknown to the
// source or could not be fetched right now; only the former is remembered.
func (s *Service) Resolve(ctx context.Context, hash string) *model.MapMetadata {
	key := strings.ToLower(hash)
	if meta, ok := s.Lookup(key); ok {
		if meta == nil {
			metrics.RecordCacheLookup(cacheName, "absent")
		} else {
			metrics.RecordCacheLookup(cacheName, "hit")
		}
		return meta
	}
	metrics.RecordCacheLookup(cacheName, "miss")

	meta, err, shared := s.inflight.Do(ctx, key, func(ctx context.Context) (*model.MapMetadata, error) {
		// A fetch that finished between Lookup and Do already filled the entry.
		if meta, ok := s.Lookup(key); ok {
			return meta, nil
		}
		return s.fetch(ctx, key)
	})
	if err != nil {
		s.logger.Warn(ctx, "metadata unavailable",
			logger.String("hash", key),
			logger.Bool("shared", shared),
			logger.Error(err))
		return nil
	}
	return meta
}

func (s *Service) fetch(ctx context.Context, key string) (*model.MapMetadata, error) {
	meta, err := s.fetcher.MapByHash(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		s.put(key, nil)
		return nil, nil
	}
	if err != nil {
		metrics.RecordErrorByComponent("metacache", "fetch")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if meta == nil {
		metrics.RecordErrorByComponent("metacache", "invalid")
		return nil, ErrInvalidMetadata
	}
	if err := s.validate.Struct(meta); err != nil {
		metrics.RecordErrorByComponent("metacache", "invalid")
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	if meta.Hash == "" {
		meta.Hash = key
	}
	s.put(key, meta)
	return meta, nil
}

// Lookup inspects the cache without I/O. known is false when hash has never
// been resolved; a known hash with nil metadata is confirmed absent.
func (s *Service) Lookup(hash string) (meta *model.MapMetadata, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, known = s.entries[strings.ToLower(hash)]
	return meta, known
}

// Len returns the number of cached hashes, absent markers included.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// InFlight returns the number of fetches currently running.
func (s *Service) InFlight() int64 {
	return s.inflight.Size()
}

// Waiters returns how many callers joined the running fetch for hash.
func (s *Service) Waiters(hash string) int {
	return s.inflight.Waiters(strings.ToLower(hash))
}

func (s *Service) put(key string, meta *model.MapMetadata) {
	s.mu.Lock()
	s.entries[key] = meta
	n := len(s.entries)
	if s.store != nil {
		s.dirty = true
		if s.timer == nil {
			s.timer = time.AfterFunc(s.debounce, s.persist)
		} else {
			s.timer.Reset(s.debounce)
		}
	}
	s.mu.Unlock()
	metrics.UpdateCacheEntries(cacheName, n)
}

// persist writes the whole cache as one snapshot if anything changed since
// the last write.
func (s *Service) persist() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	snap := make(map[string]*model.MapMetadata, len(s.entries))
	for k, v := range s.entries {
		snap[k] = v
	}
	s.dirty = false
	s.mu.Unlock()

	ctx := context.Background()
	if err := storage.SetJSON(ctx, s.store, SnapshotKey, snap, 0); err != nil {
		metrics.RecordSnapshotWrite("error")
		s.logger.Error(ctx, "metadata snapshot write failed", logger.Error(err))
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return
	}
	metrics.RecordSnapshotWrite("ok")
	s.logger.Debug(ctx, "metadata snapshot written", logger.Int("entries", len(snap)))
}

// Close flushes a pending snapshot write.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	if s.store != nil {
		s.persist()
	}
	return nil
}
