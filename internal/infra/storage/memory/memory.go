package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/infra/storage"
)

// Store is an in-memory key-value backend for tests; data does not
// survive the process.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value for key, or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[string(key)]
	if !ok {
		return nil, fmt.Errorf("%w: key %s", domain.ErrNotFound, key)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores a copy of value under key.
func (s *Store) Put(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
	return nil
}

// WriteBatch applies all pairs under one lock acquisition, so readers
// never observe a partially applied batch.
func (s *Store) WriteBatch(_ context.Context, kvs []storage.KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range kvs {
		s.set(kv.Key, kv.Value)
	}
	return nil
}

// Scan returns the values of all keys with start <= key < end, in key order.
func (s *Store) Scan(_ context.Context, start, end []byte) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for key := range s.data {
		if key >= string(start) && key < string(end) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		value := s.data[key]
		out := make([]byte, len(value))
		copy(out, value)
		values = append(values, out)
	}
	return values, nil
}

// Close releases nothing; it exists to satisfy the backend contract.
func (s *Store) Close() error {
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) set(key, value []byte) {
	out := make([]byte, len(value))
	copy(out, value)
	s.data[string(key)] = out
}
