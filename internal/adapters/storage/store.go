// Package storage provides the durable key-value store backing the caches.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/saberlens/pkg/logger"
)

// Store is a byte-oriented key-value store with optional per-key expiry.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying database.
	Close() error
}

// BadgerStore implements Store on a badger database.
type BadgerStore struct {
	db     *badger.DB
	dir    string
	logger logger.Logger
}

// Open opens a badger database. Without WithDir the database lives in memory.
func Open(opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{
		logger: logger.Get().Named("storage"),
	}
	for _, opt := range opts {
		opt(s)
	}

	bopts := badger.DefaultOptions(s.dir).WithLogger(&badgerLogger{l: s.logger})
	if s.dir == "" {
		bopts = bopts.WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	s.db = db
	return s, nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores value under key, expiring after ttl when ttl > 0.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetJSON decodes the value under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// badgerLogger routes badger's internal logging through our logger.
type badgerLogger struct {
	l logger.Logger
}

func (b *badgerLogger) Errorf(f string, args ...interface{}) {
	b.l.Error(context.Background(), fmt.Sprintf(f, args...))
}

func (b *badgerLogger) Warningf(f string, args ...interface{}) {
	b.l.Warn(context.Background(), fmt.Sprintf(f, args...))
}

func (b *badgerLogger) Infof(f string, args ...interface{}) {
	b.l.Debug(context.Background(), fmt.Sprintf(f, args...))
}

func (b *badgerLogger) Debugf(f string, args ...interface{}) {
	b.l.Debug(context.Background(), fmt.Sprintf(f, args...))
}
