package storage

import (
	"testing"

	"github.com/vietddude/syncer/internal/core/domain"
)

func TestIndexKey_Layout(t *testing.T) {
	cases := []struct {
		name  string
		kind  domain.Kind
		index uint64
		want  string
	}{
		{
			name:  "zero index",
			kind:  domain.KindEnqueue,
			index: 0,
			want:  "enqueue:00000000000000000000000000000000",
		},
		{
			name:  "small index",
			kind:  domain.KindTransaction,
			index: 42,
			want:  "transaction:00000000000000000000000000000042",
		},
		{
			name:  "namespaced kind",
			kind:  domain.KindUnconfirmedTransaction,
			index: 7,
			want:  "unconfirmed:transaction:00000000000000000000000000000007",
		},
		{
			name:  "max uint64 still fits the width",
			kind:  domain.KindStateRoot,
			index: ^uint64(0),
			want:  "stateroot:00000000000018446744073709551615",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(IndexKey(tc.kind, tc.index))
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIndexKey_PreservesNumericOrder(t *testing.T) {
	// Lexicographic key order must match numeric index order, including
	// across digit-count boundaries.
	indices := []uint64{0, 1, 9, 10, 99, 100, 999999999, 1000000000}
	for i := 1; i < len(indices); i++ {
		prev := string(IndexKey(domain.KindTransaction, indices[i-1]))
		next := string(IndexKey(domain.KindTransaction, indices[i]))
		if prev >= next {
			t.Errorf("key for %d not below key for %d: %q >= %q",
				indices[i-1], indices[i], prev, next)
		}
	}
}

func TestLatestKey(t *testing.T) {
	got := string(LatestKey(domain.KindTransactionBatch))
	if got != "batch:transaction:latest" {
		t.Errorf("expected %q, got %q", "batch:transaction:latest", got)
	}
}

func TestScanCursorKey(t *testing.T) {
	got := string(ScanCursorKey("enqueue-watcher"))
	if got != "event:latest:enqueue-watcher" {
		t.Errorf("expected %q, got %q", "event:latest:enqueue-watcher", got)
	}
}

func TestIndexKeyRange_HalfOpen(t *testing.T) {
	lower, upper := IndexKeyRange(domain.KindEnqueue, 10, 20)
	if string(lower) != string(IndexKey(domain.KindEnqueue, 10)) {
		t.Errorf("lower bound should include the start index, got %q", lower)
	}
	if string(upper) != string(IndexKey(domain.KindEnqueue, 20)) {
		t.Errorf("upper bound should be the end index key, got %q", upper)
	}
	// The latest pointer sorts above every padded index key, so a full-range
	// scan never picks it up.
	highest := string(IndexKey(domain.KindEnqueue, ^uint64(0)))
	if highest >= string(LatestKey(domain.KindEnqueue)) {
		t.Error("index keys must sort below the latest pointer key")
	}
}
