package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/vietddude/syncer/internal/core/domain"
)

// mockKV is a map-backed backend that records every WriteBatch call so
// tests can check what landed atomically.
type mockKV struct {
	data    map[string][]byte
	batches [][]KV
	puts    int
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key []byte) ([]byte, error) {
	value, ok := m.data[string(key)]
	if !ok {
		return nil, fmt.Errorf("%w: key %s", domain.ErrNotFound, key)
	}
	return value, nil
}

func (m *mockKV) Put(_ context.Context, key, value []byte) error {
	m.puts++
	m.data[string(key)] = value
	return nil
}

func (m *mockKV) WriteBatch(_ context.Context, kvs []KV) error {
	m.batches = append(m.batches, kvs)
	for _, kv := range kvs {
		m.data[string(kv.Key)] = kv.Value
	}
	return nil
}

func (m *mockKV) Scan(_ context.Context, start, end []byte) ([][]byte, error) {
	keys := make([]string, 0)
	for key := range m.data {
		if key >= string(start) && key < string(end) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		values = append(values, m.data[key])
	}
	return values, nil
}

func (m *mockKV) Close() error { return nil }

func enqueueAt(index uint64) *domain.EnqueueEntry {
	return &domain.EnqueueEntry{
		Index:       index,
		BlockNumber: 100 + index,
		Timestamp:   1700000000 + index,
		Target:      "0x4200000000000000000000000000000000000005",
		Data:        "0xdead",
		GasLimit:    500000,
		Origin:      "0x52bc44d5378309ee2abf1539bf71de1b7d7be3b5",
	}
}

func TestPutIndexed_RejectsEmptyBatch(t *testing.T) {
	store := New(newMockKV())
	err := store.PutIndexed(context.Background(), domain.KindEnqueue, nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPutIndexed_RejectsNonIncreasingIndices(t *testing.T) {
	cases := []struct {
		name    string
		indices []uint64
	}{
		{name: "descending", indices: []uint64{5, 4}},
		{name: "duplicate", indices: []uint64{7, 7}},
		{name: "dip in the middle", indices: []uint64{1, 3, 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := make([]domain.IndexedRecord, 0, len(tc.indices))
			for _, idx := range tc.indices {
				records = append(records, enqueueAt(idx))
			}
			store := New(newMockKV())
			err := store.PutIndexed(context.Background(), domain.KindEnqueue, records)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestPutIndexed_WritesRecordsAndAdvancesLatest(t *testing.T) {
	kv := newMockKV()
	store := New(kv)
	ctx := context.Background()

	records := []domain.IndexedRecord{enqueueAt(0), enqueueAt(1), enqueueAt(2)}
	if err := store.PutIndexed(ctx, domain.KindEnqueue, records); err != nil {
		t.Fatalf("PutIndexed failed: %v", err)
	}

	// Every record readable back by index.
	for i := uint64(0); i <= 2; i++ {
		raw, err := store.GetByIndex(ctx, domain.KindEnqueue, i)
		if err != nil {
			t.Fatalf("GetByIndex(%d) failed: %v", i, err)
		}
		var entry domain.EnqueueEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			t.Fatalf("stored value for %d is not valid JSON: %v", i, err)
		}
		if entry.Index != i {
			t.Errorf("expected index %d, got %d", i, entry.Index)
		}
	}

	latest, err := store.GetLatest(ctx, domain.KindEnqueue)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("expected latest 2, got %d", latest)
	}
}

func TestPutIndexed_RecordsAndPointerShareOneBatch(t *testing.T) {
	kv := newMockKV()
	store := New(kv)

	records := []domain.IndexedRecord{enqueueAt(3), enqueueAt(4)}
	if err := store.PutIndexed(context.Background(), domain.KindEnqueue, records); err != nil {
		t.Fatalf("PutIndexed failed: %v", err)
	}

	if len(kv.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(kv.batches))
	}
	if kv.puts != 0 {
		t.Errorf("expected no standalone puts, got %d", kv.puts)
	}

	batch := kv.batches[0]
	if len(batch) != 3 {
		t.Fatalf("expected 2 records + pointer in batch, got %d entries", len(batch))
	}
	last := batch[len(batch)-1]
	if string(last.Key) != string(LatestKey(domain.KindEnqueue)) {
		t.Errorf("expected pointer key last in batch, got %q", last.Key)
	}
	if string(last.Value) != "4" {
		t.Errorf("expected pointer value %q, got %q", "4", last.Value)
	}
}

func TestPutIndexed_ReplayIsIdempotent(t *testing.T) {
	kv := newMockKV()
	store := New(kv)
	ctx := context.Background()

	records := []domain.IndexedRecord{enqueueAt(0), enqueueAt(1)}
	if err := store.PutIndexed(ctx, domain.KindEnqueue, records); err != nil {
		t.Fatalf("first PutIndexed failed: %v", err)
	}
	first, err := store.GetByIndex(ctx, domain.KindEnqueue, 1)
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}

	if err := store.PutIndexed(ctx, domain.KindEnqueue, records); err != nil {
		t.Fatalf("replayed PutIndexed failed: %v", err)
	}
	second, err := store.GetByIndex(ctx, domain.KindEnqueue, 1)
	if err != nil {
		t.Fatalf("GetByIndex after replay failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("replay changed stored bytes: %q -> %q", first, second)
	}
}

func TestPutIndexed_LatestNeverRegresses(t *testing.T) {
	kv := newMockKV()
	store := New(kv)
	ctx := context.Background()

	if err := store.PutIndexed(ctx, domain.KindEnqueue, []domain.IndexedRecord{enqueueAt(5), enqueueAt(6)}); err != nil {
		t.Fatalf("PutIndexed failed: %v", err)
	}
	// Replay an older window, e.g. a crashed worker redoing its range.
	if err := store.PutIndexed(ctx, domain.KindEnqueue, []domain.IndexedRecord{enqueueAt(1), enqueueAt(2)}); err != nil {
		t.Fatalf("replayed PutIndexed failed: %v", err)
	}

	latest, err := store.GetLatest(ctx, domain.KindEnqueue)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest != 6 {
		t.Errorf("expected latest to stay 6, got %d", latest)
	}

	// The older records themselves were still rewritten.
	if _, err := store.GetByIndex(ctx, domain.KindEnqueue, 1); err != nil {
		t.Errorf("expected replayed record 1 present, got %v", err)
	}
}

func TestGetByIndex_NotFound(t *testing.T) {
	store := New(newMockKV())
	_, err := store.GetByIndex(context.Background(), domain.KindTransaction, 9)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRange_HalfOpenWindow(t *testing.T) {
	kv := newMockKV()
	store := New(kv)
	ctx := context.Background()

	records := make([]domain.IndexedRecord, 0, 5)
	for i := uint64(0); i < 5; i++ {
		records = append(records, enqueueAt(i))
	}
	if err := store.PutIndexed(ctx, domain.KindEnqueue, records); err != nil {
		t.Fatalf("PutIndexed failed: %v", err)
	}

	values, err := store.GetRange(ctx, domain.KindEnqueue, 1, 4)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	for i, raw := range values {
		var entry domain.EnqueueEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			t.Fatalf("value %d is not valid JSON: %v", i, err)
		}
		if want := uint64(i) + 1; entry.Index != want {
			t.Errorf("expected index %d at position %d, got %d", want, i, entry.Index)
		}
	}

	empty, err := store.GetRange(ctx, domain.KindEnqueue, 2, 2)
	if err != nil {
		t.Fatalf("empty GetRange failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty window for start == end, got %d values", len(empty))
	}

	missing, err := store.GetRange(ctx, domain.KindEnqueue, 90, 95)
	if err != nil {
		t.Fatalf("GetRange past the tip failed: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no values past the tip, got %d", len(missing))
	}
}

func TestGetLatest_NotFoundBeforeFirstWrite(t *testing.T) {
	store := New(newMockKV())
	_, err := store.GetLatest(context.Background(), domain.KindStateRoot)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetLatest_ForwardOnly(t *testing.T) {
	store := New(newMockKV())
	ctx := context.Background()

	if err := store.SetLatest(ctx, domain.KindUnconfirmed, 10); err != nil {
		t.Fatalf("initial SetLatest failed: %v", err)
	}
	if err := store.SetLatest(ctx, domain.KindUnconfirmed, 7); err != nil {
		t.Fatalf("stale SetLatest should be a no-op, got %v", err)
	}
	latest, err := store.GetLatest(ctx, domain.KindUnconfirmed)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest != 10 {
		t.Errorf("expected latest to stay 10, got %d", latest)
	}

	if err := store.SetLatest(ctx, domain.KindUnconfirmed, 12); err != nil {
		t.Fatalf("SetLatest failed: %v", err)
	}
	latest, err = store.GetLatest(ctx, domain.KindUnconfirmed)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest != 12 {
		t.Errorf("expected latest 12, got %d", latest)
	}
}

func TestScanCursor_RoundTripAndManualReset(t *testing.T) {
	store := New(newMockKV())
	ctx := context.Background()

	if _, err := store.GetScanCursor(ctx, "enqueue-watcher"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first checkpoint, got %v", err)
	}

	if err := store.PutScanCursor(ctx, "enqueue-watcher", 42); err != nil {
		t.Fatalf("PutScanCursor failed: %v", err)
	}
	block, err := store.GetScanCursor(ctx, "enqueue-watcher")
	if err != nil {
		t.Fatalf("GetScanCursor failed: %v", err)
	}
	if block != 42 {
		t.Errorf("expected cursor 42, got %d", block)
	}

	// Resets move backward on purpose; no clamping here.
	if err := store.PutScanCursor(ctx, "enqueue-watcher", 7); err != nil {
		t.Fatalf("backward PutScanCursor failed: %v", err)
	}
	block, err = store.GetScanCursor(ctx, "enqueue-watcher")
	if err != nil {
		t.Fatalf("GetScanCursor after reset failed: %v", err)
	}
	if block != 7 {
		t.Errorf("expected cursor 7 after reset, got %d", block)
	}
}
