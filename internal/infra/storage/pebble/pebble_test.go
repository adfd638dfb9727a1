package pebble

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/infra/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: t.TempDir(), CacheMB: 8, MemTableMB: 4})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{CacheMB: 8, MemTableMB: 4})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), []byte("missing"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, []byte("k"), []byte("value")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("expected %q, got %q", "value", got)
	}
}

func TestStore_WriteBatchThenScan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []storage.KV{
		{Key: []byte("tx:0001"), Value: []byte("a")},
		{Key: []byte("tx:0002"), Value: []byte("b")},
		{Key: []byte("tx:0003"), Value: []byte("c")},
		{Key: []byte("tx:latest"), Value: []byte("2")},
	}
	if err := s.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	values, err := s.Scan(ctx, []byte("tx:0001"), []byte("tx:0003"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values in half-open window, got %d", len(values))
	}
	if string(values[0]) != "a" || string(values[1]) != "b" {
		t.Errorf("expected [a b], got [%s %s]", values[0], values[1])
	}
}

func TestStore_ScanEmptyWindow(t *testing.T) {
	s := openTestStore(t)
	values, err := s.Scan(context.Background(), []byte("x:0"), []byte("x:9"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty result, got %d values", len(values))
	}
}

func TestStore_CloseTwice(t *testing.T) {
	s, err := Open(Config{Path: t.TempDir(), CacheMB: 8, MemTableMB: 4})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if _, err := s.Get(context.Background(), []byte("k")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}
