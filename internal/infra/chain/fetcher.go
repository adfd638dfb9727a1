package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/metrics"
	"github.com/vietddude/syncer/internal/infra/rpc"
)

// Mode selects how block ranges are pulled from the sequencer.
type Mode string

const (
	// ModeBulk uses the sequencer's eth_getBlockRange extension: one call
	// per window, results trusted to arrive ascending.
	ModeBulk Mode = "bulk"

	// ModeCompatibility falls back to per-block eth_getBlockByNumber for
	// endpoints without the range extension. Blocks are fetched
	// concurrently and reordered before anything downstream sees them.
	ModeCompatibility Mode = "compatibility"
)

// Fetcher pulls raw blocks from the sequencer endpoint.
type Fetcher struct {
	client      rpc.Caller
	mode        Mode
	concurrency int
	log         *slog.Logger
}

// NewFetcher creates a fetcher. Concurrency only applies in
// compatibility mode.
func NewFetcher(client rpc.Caller, mode Mode, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{
		client:      client,
		mode:        mode,
		concurrency: concurrency,
		log:         slog.With("component", "fetcher"),
	}
}

// CurrentHeight returns the sequencer's reported chain height.
func (f *Fetcher) CurrentHeight(ctx context.Context) (uint64, error) {
	result, err := f.client.Call(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}

	var blockHex string
	if err := json.Unmarshal(result, &blockHex); err != nil {
		return 0, fmt.Errorf("%w: eth_blockNumber result: %v", domain.ErrRPC, err)
	}
	height, err := domain.ParseHexUint64(blockHex)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_blockNumber result: %v", domain.ErrRPC, err)
	}

	metrics.ChainHeight.Set(float64(height))
	return height, nil
}

// FetchRange returns the raw blocks numbered start through end inclusive,
// ascending by each block's own number. An inverted window returns nothing.
func (f *Fetcher) FetchRange(ctx context.Context, start, end uint64) ([]domain.RawBlock, error) {
	if start > end {
		return nil, nil
	}
	f.log.Debug("fetching blocks", "start", start, "end", end, "mode", f.mode)
	if f.mode == ModeCompatibility {
		return f.fetchBlocks(ctx, start, end)
	}
	return f.fetchBlockRange(ctx, start, end)
}

// fetchBlockRange pulls the whole window in one eth_getBlockRange call.
func (f *Fetcher) fetchBlockRange(ctx context.Context, start, end uint64) ([]domain.RawBlock, error) {
	params := []any{HexUint64(start), HexUint64(end), true}
	result, err := f.client.Call(ctx, "eth_getBlockRange", params)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockRange [%d, %d]: %w", start, end, err)
	}

	var blocks []domain.RawBlock
	if err := json.Unmarshal(result, &blocks); err != nil {
		return nil, fmt.Errorf("%w: eth_getBlockRange result: %v", domain.ErrRPC, err)
	}
	return blocks, nil
}

// fetchBlocks pulls every block in the window individually, bounded by the
// configured concurrency, then sorts by self-reported number. Responses
// complete in arbitrary order, so the sort is what restores the ascending
// contract.
func (f *Fetcher) fetchBlocks(ctx context.Context, start, end uint64) ([]domain.RawBlock, error) {
	count := end - start + 1
	fetched := make([]struct {
		number uint64
		block  domain.RawBlock
	}, count)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i := uint64(0); i < count; i++ {
		i := i
		g.Go(func() error {
			block, err := f.fetchBlock(ctx, start+i)
			if err != nil {
				return err
			}
			number, err := block.Number()
			if err != nil {
				return err
			}
			fetched[i].number = number
			fetched[i].block = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(fetched, func(i, j int) bool {
		return fetched[i].number < fetched[j].number
	})

	blocks := make([]domain.RawBlock, count)
	for i := range fetched {
		blocks[i] = fetched[i].block
	}
	return blocks, nil
}

func (f *Fetcher) fetchBlock(ctx context.Context, number uint64) (domain.RawBlock, error) {
	params := []any{HexUint64(number), true}
	result, err := f.client.Call(ctx, "eth_getBlockByNumber", params)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber %d: %w", number, err)
	}

	var block domain.RawBlock
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", domain.ErrRPC, number, err)
	}
	if block == nil {
		return nil, fmt.Errorf("%w: block %d not returned", domain.ErrRPC, number)
	}
	return block, nil
}

// HexUint64 formats n as a 0x-prefixed hex quantity without leading zeros.
func HexUint64(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}
