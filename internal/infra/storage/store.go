package storage

import (
	"context"

	"github.com/vietddude/syncer/internal/core/domain"
)

// KV is one put operation inside an atomic batch.
type KV struct {
	Key   []byte
	Value []byte
}

// KVStore is the byte-oriented backend beneath the ordered store. Get
// returns domain.ErrNotFound for absent keys. WriteBatch applies every put
// atomically. Scan returns the values for keys in [start, end), ascending
// by key bytes.
type KVStore interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	WriteBatch(ctx context.Context, kvs []KV) error
	Scan(ctx context.Context, start, end []byte) ([][]byte, error)
	Close() error
}

// RecordWriter is the write surface handed to block decoders.
type RecordWriter interface {
	PutIndexed(ctx context.Context, kind domain.Kind, records []domain.IndexedRecord) error
}

// RecordReader is the read surface consumed by the query API.
type RecordReader interface {
	GetByIndex(ctx context.Context, kind domain.Kind, index uint64) ([]byte, error)
	GetRange(ctx context.Context, kind domain.Kind, start, end uint64) ([][]byte, error)
	GetLatest(ctx context.Context, kind domain.Kind) (uint64, error)
}
