package cli

import (
	"fmt"

	"github.com/vietddude/syncer/internal/core/config"
	"github.com/vietddude/syncer/internal/infra/storage"
	"github.com/vietddude/syncer/internal/infra/storage/pebble"
	"github.com/vietddude/syncer/internal/infra/storage/postgres"
)

// openStore opens the backend named by the config directly, without the
// service around it.
func openStore() (*storage.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	var kv storage.KVStore
	if cfg.Store.Postgres.URL != "" {
		kv, err = postgres.Open(cfg.Store.Postgres)
	} else {
		kv, err = pebble.Open(cfg.Store.Pebble)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store backend: %w", err)
	}

	return storage.New(kv), nil
}
