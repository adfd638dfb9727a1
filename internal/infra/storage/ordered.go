package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/metrics"
)

// Store is the ordered record store: indexed records per kind, monotonic
// latest pointers, half-open range scans, and named scan cursors, all over
// a pluggable byte-oriented backend.
type Store struct {
	kv KVStore
}

// New creates a Store on top of a backend.
func New(kv KVStore) *Store {
	return &Store{kv: kv}
}

// PutIndexed atomically writes a non-empty, strictly increasing sequence of
// records and advances the kind's latest pointer to the batch maximum. The
// member records and the pointer land in a single backend batch, so the
// pointer is never observable ahead of a record it covers. Replaying an
// already-synced range overwrites records in place and leaves a further
// advanced pointer untouched.
func (s *Store) PutIndexed(ctx context.Context, kind domain.Kind, records []domain.IndexedRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: empty batch for kind %s", domain.ErrInvalidArgument, kind)
	}
	for i := 1; i < len(records); i++ {
		if records[i].RecordIndex() <= records[i-1].RecordIndex() {
			return fmt.Errorf("%w: indices not strictly increasing for kind %s (%d then %d)",
				domain.ErrInvalidArgument, kind, records[i-1].RecordIndex(), records[i].RecordIndex())
		}
	}

	kvs := make([]KV, 0, len(records)+1)
	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s record %d: %w", kind, rec.RecordIndex(), err)
		}
		kvs = append(kvs, KV{Key: IndexKey(kind, rec.RecordIndex()), Value: value})
	}

	maxIndex := records[len(records)-1].RecordIndex()
	current, err := s.GetLatest(ctx, kind)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		kvs = append(kvs, KV{Key: LatestKey(kind), Value: encodeUint(maxIndex)})
	case err != nil:
		return err
	case maxIndex > current:
		kvs = append(kvs, KV{Key: LatestKey(kind), Value: encodeUint(maxIndex)})
	}

	if err := s.kv.WriteBatch(ctx, kvs); err != nil {
		return fmt.Errorf("write %s batch: %w", kind, err)
	}
	metrics.RecordsWritten.WithLabelValues(kind.String()).Add(float64(len(records)))
	return nil
}

// GetByIndex returns the stored JSON of one record, or domain.ErrNotFound.
func (s *Store) GetByIndex(ctx context.Context, kind domain.Kind, index uint64) ([]byte, error) {
	value, err := s.kv.Get(ctx, IndexKey(kind, index))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s index %d", domain.ErrNotFound, kind, index)
		}
		return nil, fmt.Errorf("get %s index %d: %w", kind, index, err)
	}
	return value, nil
}

// GetRange returns the records with start <= index < end, ascending.
// Possibly empty, never an error for an empty window.
func (s *Store) GetRange(ctx context.Context, kind domain.Kind, start, end uint64) ([][]byte, error) {
	if end <= start {
		return nil, nil
	}
	lower, upper := IndexKeyRange(kind, start, end)
	values, err := s.kv.Scan(ctx, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("scan %s [%d, %d): %w", kind, start, end, err)
	}
	return values, nil
}

// GetLatest returns the kind's latest pointer, or domain.ErrNotFound when
// nothing was ever written for the kind.
func (s *Store) GetLatest(ctx context.Context, kind domain.Kind) (uint64, error) {
	value, err := s.kv.Get(ctx, LatestKey(kind))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: no latest pointer for %s", domain.ErrNotFound, kind)
		}
		return 0, fmt.Errorf("get %s latest: %w", kind, err)
	}
	index, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt latest pointer for %s: %v", domain.ErrStorage, kind, err)
	}
	return index, nil
}

// SetLatest advances the kind's latest pointer. The pointer only moves
// forward; a stale advance is a no-op.
func (s *Store) SetLatest(ctx context.Context, kind domain.Kind, index uint64) error {
	current, err := s.GetLatest(ctx, kind)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err == nil && index <= current {
		return nil
	}
	if err := s.kv.Put(ctx, LatestKey(kind), encodeUint(index)); err != nil {
		return fmt.Errorf("set %s latest: %w", kind, err)
	}
	return nil
}

// GetScanCursor returns a named watcher's last-scanned block, or
// domain.ErrNotFound when the watcher has never checkpointed.
func (s *Store) GetScanCursor(ctx context.Context, name string) (uint64, error) {
	value, err := s.kv.Get(ctx, ScanCursorKey(name))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: no scan cursor for %s", domain.ErrNotFound, name)
		}
		return 0, fmt.Errorf("get scan cursor %s: %w", name, err)
	}
	block, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt scan cursor for %s: %v", domain.ErrStorage, name, err)
	}
	return block, nil
}

// PutScanCursor records a named watcher's last-scanned block. Monotonic by
// convention only: manual resets move it backward on purpose.
func (s *Store) PutScanCursor(ctx context.Context, name string, block uint64) error {
	if err := s.kv.Put(ctx, ScanCursorKey(name), encodeUint(block)); err != nil {
		return fmt.Errorf("put scan cursor %s: %w", name, err)
	}
	return nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

func encodeUint(n uint64) []byte {
	return []byte(strconv.FormatUint(n, 10))
}
