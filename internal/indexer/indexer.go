package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/defich/ocean/internal/cache"
	"github.com/defich/ocean/internal/config"
	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/log"
	"github.com/defich/ocean/internal/metrics"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/poolswap"
	"github.com/defich/ocean/internal/schema"
	"github.com/defich/ocean/internal/trie"
)

// BlockSource fetches the next block the indexer should index, and the
// current upstream tip height, mirroring the teacher's reconciler pulling
// from a Manager rather than owning the transport itself.
type BlockSource interface {
	BlockAtHeight(ctx context.Context, height uint32) (*BlockInput, error)
	TipHeight(ctx context.Context) (uint32, error)
}

// Indexer drives forward indexing and invalidation, per spec.md §4.6–§4.8.
// It is the sole writer to every projection (spec.md §5): a mutex guards
// the whole block so a concurrent Invalidate triggered by a detected reorg
// cannot interleave with an in-flight IndexBlock, matching SPEC_FULL.md
// §4.6.
type Indexer struct {
	columns  *schema.Columns
	cache    *cache.Manager
	trieKV   trie.KV
	poolswap *poolswap.Engine
	preset   config.Preset

	mu sync.Mutex

	swapResultsMu sync.Mutex
	swapResults   map[[32]byte]SwapResult
}

// New constructs an Indexer bound to the shared storage substrate.
func New(columns *schema.Columns, cacheMgr *cache.Manager, trieKV trie.KV, preset config.Preset) *Indexer {
	return &Indexer{
		columns:     columns,
		cache:       cacheMgr,
		trieKV:      trieKV,
		poolswap:    poolswap.New(columns),
		preset:      preset,
		swapResults: make(map[[32]byte]SwapResult),
	}
}

// SetSwapResult records the side-channel (pool-id, to-amount) result the
// EVM/consensus layer computed for txid, per spec.md §4.7 "PoolSwap". Must
// be called before IndexBlock processes the transaction that carries the
// matching pool-swap operation.
func (ix *Indexer) SetSwapResult(txid [32]byte, result SwapResult) {
	ix.swapResultsMu.Lock()
	ix.swapResults[txid] = result
	ix.swapResultsMu.Unlock()
}

func (ix *Indexer) takeSwapResult(txid [32]byte) (SwapResult, bool) {
	ix.swapResultsMu.Lock()
	defer ix.swapResultsMu.Unlock()
	r, ok := ix.swapResults[txid]
	if ok {
		delete(ix.swapResults, txid)
	}
	return r, ok
}

// putSwapResult re-installs a result for txid. Nothing calls it:
// invalidation consumes results through requireSwapResult just as the
// forward path does, and the caller re-populates them with SetSwapResult.
func (ix *Indexer) putSwapResult(txid [32]byte, result SwapResult) {
	ix.swapResultsMu.Lock()
	ix.swapResults[txid] = result
	ix.swapResultsMu.Unlock()
}

// Run drives the indexer's tip-following loop: fetch the next block from
// src, index it, and sleep at the tip, per spec.md §5 ("the indexer's sleep
// when it reaches the tip"). It retries the same height with backoff on a
// storage-level failure, per spec.md §7.
func (ix *Indexer) Run(ctx context.Context, src BlockSource, pollInterval time.Duration) error {
	logger := log.WithComponent("indexer")
	height, err := ix.NextHeight()
	if err != nil {
		return err
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tip, err := src.TipHeight(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to read upstream tip height")
			time.Sleep(pollInterval)
			continue
		}
		if height > tip {
			time.Sleep(pollInterval)
			continue
		}

		block, err := src.BlockAtHeight(ctx, height)
		if err != nil {
			logger.Error().Err(err).Uint32("height", height).Msg("failed to fetch block")
			time.Sleep(pollInterval)
			continue
		}

		if tipRow, ok, err := ix.Tip(); err != nil {
			logger.Error().Err(err).Msg("failed to read local tip")
			time.Sleep(backoff)
			continue
		} else if ok && block.ParentHash != tipRow.Hash {
			logger.Warn().Uint32("height", height).Msg("parent hash mismatch against local tip, reorg detected")
			if err := ix.InvalidateTip(ctx, src); err != nil {
				logger.Error().Err(err).Uint32("height", tipRow.Height).Msg("invalidation failed, retrying after backoff")
				time.Sleep(backoff)
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			height = tipRow.Height
			continue
		}

		if err := ix.IndexBlock(ctx, *block); err != nil {
			metrics.IndexerRetriesTotal.Inc()
			logger.Error().Err(err).Uint32("height", height).Msg("indexing block failed, retrying after backoff")
			time.Sleep(backoff)
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		height++
	}
}

// NextHeight returns the height the indexer should index next: one past
// the current tip, or 0 for a fresh store.
func (ix *Indexer) NextHeight() (uint32, error) {
	tip, ok, err := ix.Tip()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return tip.Height + 1, nil
}

// Tip returns the current tip's full row, consulting the cache first, per
// spec.md §4.10's cache-then-store dispatch.
func (ix *Indexer) Tip() (tip model.Block, ok bool, err error) {
	if b, hit := ix.cache.LatestBlock.Get(); hit {
		return b, true, nil
	}

	// Fall back to scanning block-by-height in reverse for the greatest
	// indexed height, per invariant §8.6 ("latest-block.height equals the
	// maximum height present in the block-by-height index").
	for pair, err := range ix.columns.BlockByHeight.List(nil, kv.Reverse) {
		if err != nil {
			return model.Block{}, false, err
		}
		b, found, err := ix.columns.Block.Get(pair.Value)
		if err != nil {
			return model.Block{}, false, err
		}
		if !found {
			return model.Block{}, false, fmt.Errorf("%w: block-by-height[%d]", ocerr.ErrMissingPrimary, pair.Key)
		}
		ix.cache.LatestBlock.Set(b)
		return b, true, nil
	}
	return model.Block{}, false, nil
}
