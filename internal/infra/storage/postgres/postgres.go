package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/infra/storage"
)

// Config holds the shared-store settings.
type Config struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Store is a KV backend on postgres, for deployments where several
// readers share one durable store. Rows live in kv_records with the key
// as primary key, so the ordered-scan contract falls out of the index.
type Store struct {
	db *sqlx.DB
}

// Open connects, configures the pool, and verifies the schema is reachable.
func Open(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: postgres url is required", domain.ErrConfiguration)
	}

	db, err := sqlx.Connect("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// Get returns the value for key, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM kv_records WHERE key = $1`, string(key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: key %s", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorage, key, err)
	}
	return value, nil
}

// Put upserts one key.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_records (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		string(key), value)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// WriteBatch upserts all pairs in one transaction.
func (s *Store) WriteBatch(ctx context.Context, kvs []storage.KV) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO kv_records (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`)
	if err != nil {
		return fmt.Errorf("%w: prepare batch: %v", domain.ErrStorage, err)
	}
	defer stmt.Close()

	for _, kv := range kvs {
		if _, err := stmt.ExecContext(ctx, string(kv.Key), kv.Value); err != nil {
			return fmt.Errorf("%w: batch put %s: %v", domain.ErrStorage, kv.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit batch: %v", domain.ErrStorage, err)
	}
	return nil
}

// Scan returns the values of all keys with start <= key < end, in key order.
func (s *Store) Scan(ctx context.Context, start, end []byte) ([][]byte, error) {
	var values [][]byte
	err := s.db.SelectContext(ctx, &values,
		`SELECT value FROM kv_records WHERE key >= $1 AND key < $2 ORDER BY key`,
		string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("%w: scan [%s, %s): %v", domain.ErrStorage, start, end, err)
	}
	return values, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
