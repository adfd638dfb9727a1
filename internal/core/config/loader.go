package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Chain.ID == 0 {
		cfg.Chain.ID = 10
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 10 * time.Second
	}
	if cfg.Chain.Mode == "" {
		cfg.Chain.Mode = "bulk"
	}
	if cfg.Chain.FetchConcurrency == 0 {
		cfg.Chain.FetchConcurrency = 5
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 1000
	}
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 5 * time.Second
	}
	if cfg.Sync.ErrorPolicy == "" {
		cfg.Sync.ErrorPolicy = "fail_fast"
	}
	if cfg.Store.Postgres.URL == "" && cfg.Store.Pebble.Path == "" {
		cfg.Store.Pebble.Path = "data/syncer"
	}
	if cfg.Store.Pebble.CacheMB == 0 {
		cfg.Store.Pebble.CacheMB = 64
	}
	if cfg.Store.Pebble.MemTableMB == 0 {
		cfg.Store.Pebble.MemTableMB = 16
	}
	if cfg.Store.Postgres.MaxConns == 0 {
		cfg.Store.Postgres.MaxConns = 10
	}
	if cfg.Store.Postgres.MinConns == 0 {
		cfg.Store.Postgres.MinConns = 2
	}
	if cfg.Redis.LeaseTTL == 0 {
		cfg.Redis.LeaseTTL = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
