package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/metrics"
	"github.com/vietddude/syncer/internal/infra/storage"
)

// defaultStartBlock is the cursor value assumed for an empty store. Block 1
// is the chain's first real block; syncing begins one past it.
const defaultStartBlock = 1

// Fetcher pulls raw blocks from the sequencer.
type Fetcher interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	FetchRange(ctx context.Context, start, end uint64) ([]domain.RawBlock, error)
}

// Decoder turns raw blocks into stored records.
type Decoder interface {
	ParseBlock(raw domain.RawBlock) (*domain.SequencerBlock, error)
	StoreBlock(ctx context.Context, block *domain.SequencerBlock, writer storage.RecordWriter) error
}

// Store is the slice of the ordered store the loop needs: committing
// records and moving the sync cursor.
type Store interface {
	storage.RecordWriter
	GetLatest(ctx context.Context, kind domain.Kind) (uint64, error)
	SetLatest(ctx context.Context, kind domain.Kind, index uint64) error
}

// Config holds the engine's collaborators and tuning.
type Config struct {
	Fetcher      Fetcher
	Decoder      Decoder
	Store        Store
	BatchSize    uint64
	PollInterval time.Duration
	Policy       ErrorPolicy
}

// Engine owns the ingestion loop: compute the next window, fetch it,
// decode and commit each block in order, advance the cursor, pace. One
// engine instance owns its namespace; it is never re-entered concurrently.
type Engine struct {
	cfg Config
	log *slog.Logger

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once

	highestSynced atomic.Uint64
	chainHeight   atomic.Uint64
}

// Status is a point-in-time view of the loop for health reporting.
type Status struct {
	Running       bool   `json:"running"`
	HighestSynced uint64 `json:"highestSynced"`
	ChainHeight   uint64 `json:"chainHeight"`
}

// New validates the configuration once and constructs the engine.
// Collaborators are trusted from here on.
func New(cfg Config) (*Engine, error) {
	if cfg.Fetcher == nil || cfg.Decoder == nil || cfg.Store == nil {
		return nil, fmt.Errorf("%w: engine requires fetcher, decoder and store", domain.ErrConfiguration)
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", domain.ErrConfiguration)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive", domain.ErrConfiguration)
	}
	if _, err := ParseErrorPolicy(string(cfg.Policy)); err != nil {
		return nil, err
	}
	if cfg.Policy == "" {
		cfg.Policy = FailFast
	}

	return &Engine{
		cfg:  cfg,
		stop: make(chan struct{}),
		log:  slog.With("component", "engine"),
	}, nil
}

// Run drives the loop until the context is cancelled, Stop is called, or a
// failure escapes the error policy. Stop and cancellation return nil.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.running.Store(false)

	e.log.Info("ingestion loop started",
		"batchSize", e.cfg.BatchSize,
		"pollInterval", e.cfg.PollInterval,
		"policy", e.cfg.Policy)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.stop:
			return nil
		default:
		}

		pause, err := e.syncOnce(ctx)
		if err != nil {
			metrics.SyncErrors.Inc()
			e.log.Error("ingestion iteration failed", "error", err)
			if !e.cfg.Policy.ShouldAbsorb(e.stopRequested()) {
				return err
			}
			// Backoff reuses the polling cadence; the unchanged cursor
			// makes the retry re-fetch the same window.
			pause = e.cfg.PollInterval
		}

		if pause > 0 {
			if stopped := e.pause(ctx, pause); stopped {
				return nil
			}
		}
	}
}

// Stop requests a graceful exit. The in-flight iteration finishes first.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Status reports the loop's current position.
func (e *Engine) Status() Status {
	return Status{
		Running:       e.running.Load(),
		HighestSynced: e.highestSynced.Load(),
		ChainHeight:   e.chainHeight.Load(),
	}
}

// syncOnce runs one iteration: window, fetch, decode+commit, cursor. The
// returned pause is how long to idle before the next iteration; zero means
// the loop is behind and should continue immediately.
func (e *Engine) syncOnce(ctx context.Context) (time.Duration, error) {
	highestSynced, err := e.cfg.Store.GetLatest(ctx, domain.KindUnconfirmed)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		highestSynced = defaultStartBlock
	}
	e.highestSynced.Store(highestSynced)

	currentHeight, err := e.cfg.Fetcher.CurrentHeight(ctx)
	if err != nil {
		return 0, err
	}
	e.chainHeight.Store(currentHeight)

	// The block at the reported height may still be forming; only blocks
	// strictly below it are safe to ingest.
	var head uint64
	if currentHeight > 0 {
		head = currentHeight - 1
	}

	target := highestSynced + e.cfg.BatchSize
	if head < target {
		target = head
	}

	if target == highestSynced {
		return e.cfg.PollInterval, nil
	}
	if target < highestSynced {
		e.log.Warn("store ahead of sequencer head",
			"highestSynced", highestSynced, "head", head)
		return e.cfg.PollInterval, nil
	}

	blocks, err := e.cfg.Fetcher.FetchRange(ctx, highestSynced+1, target)
	if err != nil {
		return 0, err
	}

	for _, raw := range blocks {
		block, err := e.cfg.Decoder.ParseBlock(raw)
		if err != nil {
			return 0, err
		}
		if err := e.cfg.Decoder.StoreBlock(ctx, block, e.cfg.Store); err != nil {
			return 0, err
		}
	}

	if err := e.cfg.Store.SetLatest(ctx, domain.KindUnconfirmed, target); err != nil {
		return 0, err
	}
	e.highestSynced.Store(target)
	metrics.HighestSynced.Set(float64(target))

	e.log.Info("window synced",
		"from", highestSynced+1, "to", target, "blocks", len(blocks))

	// A short window means the tip is near: idle one interval. A full
	// batch means the loop is catching up and goes straight back around.
	if target-highestSynced < e.cfg.BatchSize {
		return e.cfg.PollInterval, nil
	}
	return 0, nil
}

// pause idles for d, waking early on cancellation or a stop request.
// Reports whether the loop should exit.
func (e *Engine) pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-e.stop:
		return true
	case <-timer.C:
		return false
	}
}

func (e *Engine) stopRequested() bool {
	select {
	case <-e.stop:
		return true
	default:
		return false
	}
}
