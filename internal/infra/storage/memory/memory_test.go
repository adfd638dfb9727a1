package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/infra/storage"
)

func TestStore_GetMissingKey(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), []byte("nope"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, []byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("expected v1, got %q", got)
	}

	// Mutating the returned slice must not touch stored data.
	got[0] = 'X'
	again, err := s.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(again) != "v1" {
		t.Errorf("stored value was aliased by a reader, got %q", again)
	}
}

func TestStore_ScanOrderedHalfOpen(t *testing.T) {
	s := New()
	ctx := context.Background()

	pairs := map[string]string{
		"tx:0001": "a",
		"tx:0003": "c",
		"tx:0002": "b",
		"tx:0004": "d",
		"other":   "x",
	}
	for k, v := range pairs {
		if err := s.Put(ctx, []byte(k), []byte(v)); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}

	values, err := s.Scan(ctx, []byte("tx:0001"), []byte("tx:0004"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(values[i]) != want {
			t.Errorf("expected %q at position %d, got %q", want, i, values[i])
		}
	}
}

func TestStore_WriteBatchAppliesAll(t *testing.T) {
	s := New()
	ctx := context.Background()

	batch := []storage.KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}
	if err := s.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", s.Len())
	}
	got, err := s.Get(ctx, []byte("b"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "2" {
		t.Errorf("expected 2, got %q", got)
	}
}
