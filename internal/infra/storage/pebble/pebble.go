package pebble

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/infra/storage"
)

// Config holds the embedded store settings.
type Config struct {
	Path       string `yaml:"path"`
	CacheMB    int    `yaml:"cache_mb"`
	MemTableMB int    `yaml:"memtable_mb"`
}

// Store is a KV backend on an embedded pebble database. Batches commit
// with a synced WAL, so an acknowledged write survives a crash.
type Store struct {
	db     *pebble.DB
	closed atomic.Bool
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("pebble store is closed")

// Open opens (or creates) the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: pebble path is required", domain.ErrConfiguration)
	}

	opts := &pebble.Options{
		Cache:        pebble.NewCache(int64(cfg.CacheMB) << 20),
		MemTableSize: uint64(cfg.MemTableMB) << 20,
	}
	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// Get returns a copy of the value for key, or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	value, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: key %s", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorage, key, err)
	}
	// The value is only valid until the closer releases it.
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("%w: release %s: %v", domain.ErrStorage, key, err)
	}
	return out, nil
}

// Put stores value under key with a synced WAL write.
func (s *Store) Put(_ context.Context, key, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// WriteBatch applies all pairs in one atomic, synced commit.
func (s *Store) WriteBatch(_ context.Context, kvs []storage.KV) error {
	if s.closed.Load() {
		return ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, kv := range kvs {
		if err := batch.Set(kv.Key, kv.Value, nil); err != nil {
			return fmt.Errorf("%w: batch set %s: %v", domain.ErrStorage, kv.Key, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: commit batch: %v", domain.ErrStorage, err)
	}
	return nil
}

// Scan returns the values of all keys with start <= key < end, in key order.
func (s *Store) Scan(_ context.Context, start, end []byte) ([][]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open iterator: %v", domain.ErrStorage, err)
	}
	defer iter.Close()

	var values [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		values = append(values, value)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: scan: %v", domain.ErrStorage, err)
	}
	return values, nil
}

// Close closes the database. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
