package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/syncer/internal/api"
	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/engine"
	"github.com/vietddude/syncer/internal/infra/chain"
	redisclient "github.com/vietddude/syncer/internal/infra/redis"
	"github.com/vietddude/syncer/internal/infra/storage/pebble"
	"github.com/vietddude/syncer/internal/infra/storage/postgres"
)

const minLeaseTTL = 5 * time.Second

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  api.Config         `yaml:"server"`
	Chain   ChainConfig        `yaml:"chain"`
	Sync    SyncConfig         `yaml:"sync"`
	Store   StoreConfig        `yaml:"store"`
	Redis   redisclient.Config `yaml:"redis"`
	Logging LoggingConfig      `yaml:"logging"`
}

// ChainConfig holds the sequencer endpoint settings.
type ChainConfig struct {
	ID               uint64        `yaml:"id"`
	Endpoint         string        `yaml:"endpoint"`
	Timeout          time.Duration `yaml:"timeout"`
	Mode             string        `yaml:"mode"` // bulk, compatibility
	FetchConcurrency int           `yaml:"fetch_concurrency"`
}

// SyncConfig holds the ingestion loop tuning.
type SyncConfig struct {
	BatchSize    uint64        `yaml:"batch_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ErrorPolicy  string        `yaml:"error_policy"` // fail_fast, catch_and_backoff
}

// StoreConfig selects the storage backend: postgres when its url is set,
// the embedded store otherwise.
type StoreConfig struct {
	Pebble   pebble.Config   `yaml:"pebble"`
	Postgres postgres.Config `yaml:"postgres"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Validate checks the loaded configuration once, at startup.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("%w: server.port must be positive", domain.ErrConfiguration)
	}
	if c.Chain.Endpoint == "" {
		return fmt.Errorf("%w: chain.endpoint is required", domain.ErrConfiguration)
	}
	if !strings.HasPrefix(c.Chain.Endpoint, "http://") && !strings.HasPrefix(c.Chain.Endpoint, "https://") {
		return fmt.Errorf("%w: chain.endpoint must be an http(s) URL, got %q",
			domain.ErrConfiguration, c.Chain.Endpoint)
	}
	switch chain.Mode(c.Chain.Mode) {
	case chain.ModeBulk, chain.ModeCompatibility:
	default:
		return fmt.Errorf("%w: chain.mode must be bulk or compatibility, got %q",
			domain.ErrConfiguration, c.Chain.Mode)
	}
	if c.Chain.Timeout <= 0 {
		return fmt.Errorf("%w: chain.timeout must be positive", domain.ErrConfiguration)
	}
	if c.Chain.FetchConcurrency <= 0 {
		return fmt.Errorf("%w: chain.fetch_concurrency must be positive", domain.ErrConfiguration)
	}
	if c.Sync.BatchSize == 0 {
		return fmt.Errorf("%w: sync.batch_size must be positive", domain.ErrConfiguration)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("%w: sync.poll_interval must be positive", domain.ErrConfiguration)
	}
	if _, err := engine.ParseErrorPolicy(c.Sync.ErrorPolicy); err != nil {
		return err
	}
	if c.Store.Postgres.URL == "" && c.Store.Pebble.Path == "" {
		return fmt.Errorf("%w: store requires a pebble path or a postgres url", domain.ErrConfiguration)
	}
	if c.Redis.URL != "" && c.Redis.LeaseTTL < minLeaseTTL {
		return fmt.Errorf("%w: redis.lease_ttl must be at least %s when redis is enabled",
			domain.ErrConfiguration, minLeaseTTL)
	}
	return nil
}
