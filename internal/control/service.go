package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/syncer/internal/api"
	"github.com/vietddude/syncer/internal/core/config"
	"github.com/vietddude/syncer/internal/indexing/decode"
	"github.com/vietddude/syncer/internal/indexing/engine"
	"github.com/vietddude/syncer/internal/infra/chain"
	redisclient "github.com/vietddude/syncer/internal/infra/redis"
	"github.com/vietddude/syncer/internal/infra/rpc"
	"github.com/vietddude/syncer/internal/infra/storage"
	"github.com/vietddude/syncer/internal/infra/storage/pebble"
	"github.com/vietddude/syncer/internal/infra/storage/postgres"
)

// leaseNamespace is the store namespace the engine writes into. The writer
// lease keys on it so a second accidental deployment fails at startup
// instead of interleaving writes.
const leaseNamespace = "unconfirmed"

// Service is the main application struct that wires the store, the
// ingestion engine and the API server and manages their lifecycle.
type Service struct {
	cfg         *config.AppConfig
	store       *storage.Store
	rpcClient   *rpc.Client
	engine      *engine.Engine
	server      *api.Server
	redisClient *redisclient.Client
	lease       *redisclient.Lease
	log         *slog.Logger
	errCh       chan error
}

// NewService creates a new Service instance with all dependencies initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	// 1. Initialize Storage
	var kv storage.KVStore
	if cfg.Store.Postgres.URL != "" {
		db, err := postgres.Open(cfg.Store.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB(), "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		kv = db
		slog.Info("Using PostgreSQL storage")
	} else {
		pdb, err := pebble.Open(cfg.Store.Pebble)
		if err != nil {
			return nil, fmt.Errorf("failed to init pebble: %w", err)
		}
		kv = pdb
		slog.Info("Using Pebble storage", "path", cfg.Store.Pebble.Path)
	}
	store := storage.New(kv)

	// 2. Initialize Chain Access
	rpcClient := rpc.NewClient(cfg.Chain.Endpoint, cfg.Chain.Timeout)
	fetcher := chain.NewFetcher(rpcClient, chain.Mode(cfg.Chain.Mode), cfg.Chain.FetchConcurrency)
	decoder := decode.NewSequencerDecoder(cfg.Chain.ID)

	// 3. Initialize Ingestion Engine
	eng, err := engine.New(engine.Config{
		Fetcher:      fetcher,
		Decoder:      decoder,
		Store:        store,
		BatchSize:    cfg.Sync.BatchSize,
		PollInterval: cfg.Sync.PollInterval,
		Policy:       engine.ErrorPolicy(cfg.Sync.ErrorPolicy),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	// 4. Initialize API Server
	server := api.NewServer(cfg.Server, store, eng)

	// 5. Initialize Redis for the writer lease
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	return &Service{
		cfg:         cfg,
		store:       store,
		rpcClient:   rpcClient,
		engine:      eng,
		server:      server,
		redisClient: redisClient,
		log:         slog.Default(),
		errCh:       make(chan error, 1),
	}, nil
}

// Start acquires the writer lease when configured, then starts the API
// server and the ingestion engine. Fatal background failures are surfaced
// on Err.
func (s *Service) Start(ctx context.Context) error {
	if s.redisClient != nil {
		lease, err := s.redisClient.AcquireLease(ctx, leaseNamespace, s.cfg.Redis.LeaseTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire writer lease: %w", err)
		}
		s.lease = lease
		s.log.Info("Writer lease acquired", "namespace", leaseNamespace)

		go func() {
			if err := lease.Keep(ctx); err != nil {
				s.log.Error("Writer lease lost", "error", err)
				s.fail(err)
			}
		}()
	}

	go func() {
		if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server failed", "error", err)
			s.fail(err)
		}
	}()

	go func() {
		if err := s.engine.Run(ctx); err != nil {
			s.log.Error("Ingestion engine failed", "error", err)
			s.fail(err)
		}
	}()

	return nil
}

// Err reports the first fatal failure from a background component.
func (s *Service) Err() <-chan error {
	return s.errCh
}

// Stop stops the components in reverse startup order.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping syncer...")

	s.engine.Stop()

	if s.lease != nil {
		if err := s.lease.Release(ctx); err != nil {
			s.log.Warn("Failed to release writer lease", "error", err)
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if err := s.server.Stop(ctx); err != nil {
		s.log.Warn("Failed to stop API server", "error", err)
	}

	s.rpcClient.Close()

	return s.store.Close()
}

func (s *Service) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}
