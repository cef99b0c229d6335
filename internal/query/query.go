/*
Package query composes the read path the rest of Ocean's (external) HTTP
surface would sit on top of, per spec.md §4.10: check the bounded LRU cache
first, fall back to the persistent projection on a miss (backfilling the
cache), and for the handful of things the indexer never projects at all
(live pool-pair/token lists from the node itself), fall back to the
upstream RPC client. Shape mirrors the teacher's pkg/manager read methods:
check local state first, fall back to a secondary source second.
*/
package query

import (
	"context"
	"fmt"

	"github.com/defich/ocean/internal/cache"
	"github.com/defich/ocean/internal/indexer"
	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/rpc"
	"github.com/defich/ocean/internal/schema"
)

// Service is the composed read path: cache, then the persistent store, then
// (only where the store holds nothing of the kind) the upstream node.
type Service struct {
	columns *schema.Columns
	cache   *cache.Manager
	ix      *indexer.Indexer
	upstream *rpc.Client
}

// New builds a Service bound to the shared storage substrate and upstream client.
func New(columns *schema.Columns, cacheMgr *cache.Manager, ix *indexer.Indexer, upstream *rpc.Client) *Service {
	return &Service{columns: columns, cache: cacheMgr, ix: ix, upstream: upstream}
}

// Tip returns the indexer's current tip, per spec.md §4.10's "latest-block"
// read. Delegates straight to the indexer, which already does cache-first.
func (s *Service) Tip() (model.Block, bool, error) {
	return s.ix.Tip()
}

// BlockByHeight resolves a block by height: cache first, store on a miss,
// backfilling the cache.
func (s *Service) BlockByHeight(height uint32) (model.Block, bool, error) {
	if b, hit := s.cache.Blocks.Get(height); hit {
		return b, true, nil
	}
	hash, found, err := s.columns.BlockByHeight.Get(height)
	if err != nil || !found {
		return model.Block{}, found, err
	}
	b, found, err := s.columns.Block.Get(hash)
	if err != nil || !found {
		return model.Block{}, found, err
	}
	s.cache.Blocks.Put(height, b)
	return b, true, nil
}

// BlockByHash resolves a block by hash: the hash->height cache first, then
// the height-keyed cache, falling back to the store on either miss.
func (s *Service) BlockByHash(hash [32]byte) (model.Block, bool, error) {
	if height, hit := s.cache.BlockHashes.Get(hash); hit {
		return s.BlockByHeight(height)
	}
	b, found, err := s.columns.Block.Get(hash)
	if err != nil || !found {
		return model.Block{}, found, err
	}
	s.cache.BlockHashes.Put(hash, b.Height)
	s.cache.Blocks.Put(b.Height, b)
	return b, true, nil
}

// Transaction resolves a transaction by txid: cache first, store on a miss.
func (s *Service) Transaction(txid [32]byte) (model.Transaction, bool, error) {
	if tx, hit := s.cache.Transactions.Get(txid); hit {
		return tx, true, nil
	}
	tx, found, err := s.columns.Transaction.Get(txid)
	if err != nil || !found {
		return model.Transaction{}, found, err
	}
	s.cache.Transactions.Put(txid, tx)
	return tx, true, nil
}

// ScriptActivity lists activity rows for a script's HID, newest first, per
// spec.md §3 "Script-Activity". No cache sits in front of this range scan
// (spec.md §4.5 only names 4 point-lookup caches); the store itself is
// already ordered so the scan is a direct bucket walk.
func (s *Service) ScriptActivity(hid model.HID, limit int) ([]model.ScriptActivity, error) {
	from := schema.ScriptActivityKey{HID: [32]byte(hid), Height: ^uint32(0), Index: ^uint32(0), Direction: ^uint8(0)}
	for i := range from.Txid {
		from.Txid[i] = 0xff
	}
	var out []model.ScriptActivity
	for pair, err := range s.columns.ScriptActivity.List(&from, kv.Reverse) {
		if err != nil {
			return nil, err
		}
		if pair.Key.HID != [32]byte(hid) {
			break
		}
		out = append(out, pair.Value)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ScriptUnspent lists the current UTXO set for a script's HID.
func (s *Service) ScriptUnspent(hid model.HID, limit int) ([]model.ScriptUnspent, error) {
	from := schema.ScriptHeightTxVoutKey{HID: [32]byte(hid)}
	var out []model.ScriptUnspent
	for pair, err := range s.columns.ScriptUnspent.List(&from, kv.Forward) {
		if err != nil {
			return nil, err
		}
		if pair.Key.HID != [32]byte(hid) {
			break
		}
		out = append(out, pair.Value)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// LatestScriptAggregation returns the most recent (highest-height) rolling
// aggregation row for a script's HID, or ok=false if the script has never
// had activity.
func (s *Service) LatestScriptAggregation(hid model.HID) (model.ScriptAggregation, bool, error) {
	from := schema.ScriptHeightKey{HID: [32]byte(hid), Height: ^uint32(0)}
	for pair, err := range s.columns.ScriptAggregation.List(&from, kv.Reverse) {
		if err != nil {
			return model.ScriptAggregation{}, false, err
		}
		if pair.Key.HID != [32]byte(hid) {
			break
		}
		return pair.Value, true, nil
	}
	return model.ScriptAggregation{}, false, nil
}

// Masternode resolves a masternode by its creation txid.
func (s *Service) Masternode(id [32]byte) (model.Masternode, bool, error) {
	return s.columns.Masternode.Get(id)
}

// MasternodeStats returns the snapshot at or immediately before height.
func (s *Service) MasternodeStats(maxHeight uint32) (model.MasternodeStats, bool, error) {
	from := maxHeight
	for pair, err := range s.columns.MasternodeStats.List(&from, kv.Reverse) {
		if err != nil {
			return model.MasternodeStats{}, false, err
		}
		return pair.Value, true, nil
	}
	return model.MasternodeStats{}, false, nil
}

// Oracle resolves an oracle by id.
func (s *Service) Oracle(id [32]byte) (model.Oracle, bool, error) {
	return s.columns.Oracle.Get(id)
}

// PriceAggregated returns the latest aggregate at or before maxHeight for
// (token, currency), per spec.md §4.7.
func (s *Service) PriceAggregated(token, currency string, maxHeight uint32) (model.PriceAggregated, bool, error) {
	from := schema.PriceHeightKey{Token: token, Currency: currency, Height: maxHeight}
	for pair, err := range s.columns.OraclePriceAggregated.List(&from, kv.Reverse) {
		if err != nil {
			return model.PriceAggregated{}, false, err
		}
		if pair.Key.Token != token || pair.Key.Currency != currency {
			break
		}
		return pair.Value, true, nil
	}
	return model.PriceAggregated{}, false, nil
}

// PriceActive returns the loan-token two-slot pricing row for (token, currency).
func (s *Service) PriceActive(token, currency string) (model.PriceActive, bool, error) {
	return s.columns.OraclePriceActive.Get(schema.TokenCurrencyKey{Token: token, Currency: currency})
}

// PoolSwaps lists swaps against a pool id, newest first.
func (s *Service) PoolSwaps(poolID uint32, limit int) ([]model.PoolSwap, error) {
	from := schema.PoolSwapKey{PoolID: poolID, Height: ^uint32(0), TxIndex: ^uint32(0)}
	var out []model.PoolSwap
	for pair, err := range s.columns.PoolSwap.List(&from, kv.Reverse) {
		if err != nil {
			return nil, err
		}
		if pair.Key.PoolID != poolID {
			break
		}
		out = append(out, pair.Value)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// PoolSwapAggregatedBucket returns the most recent bucket at or before
// bucketStart for (poolID, interval), per spec.md §4.9's descending-scan
// lookup.
func (s *Service) PoolSwapAggregatedBucket(poolID uint32, interval uint32, bucketStart int64) (model.PoolSwapAggregatedBucket, bool, error) {
	from := schema.PoolSwapAggKey{PoolID: poolID, Interval: interval, BucketStart: bucketStart}
	for pair, err := range s.columns.PoolSwapAggregated.List(&from, kv.Reverse) {
		if err != nil {
			return model.PoolSwapAggregatedBucket{}, false, err
		}
		if pair.Key.PoolID != poolID || pair.Key.Interval != interval {
			break
		}
		return pair.Value, true, nil
	}
	return model.PoolSwapAggregatedBucket{}, false, nil
}

// ListPoolPairs proxies to the upstream node: pool-pair metadata (fees,
// reserves, symbols) is never projected into Ocean's own store — the
// indexer only derives swap deltas from it, per spec.md §1 ("pool-pair
// definitions themselves are read live from upstream, not indexed").
func (s *Service) ListPoolPairs(ctx context.Context) ([]byte, error) {
	if s.upstream == nil {
		return nil, fmt.Errorf("%w: no upstream client configured", ocerr.ErrValidation)
	}
	return s.upstream.ListPoolPairs(ctx)
}

// ListTokens proxies to the upstream node for the same reason as ListPoolPairs.
func (s *Service) ListTokens(ctx context.Context) ([]byte, error) {
	if s.upstream == nil {
		return nil, fmt.Errorf("%w: no upstream client configured", ocerr.ErrValidation)
	}
	return s.upstream.ListTokens(ctx)
}

// VaultAuctionHistory lists recorded bids for a vault's auction index.
func (s *Service) VaultAuctionHistory(vaultID [32]byte, auctionIndex uint32, limit int) ([]model.VaultAuctionHistory, error) {
	from := schema.VaultAuctionKey{VaultID: vaultID, AuctionIndex: auctionIndex}
	var out []model.VaultAuctionHistory
	for pair, err := range s.columns.VaultAuctionHistory.List(&from, kv.Forward) {
		if err != nil {
			return nil, err
		}
		if pair.Key.VaultID != vaultID || pair.Key.AuctionIndex != auctionIndex {
			break
		}
		out = append(out, pair.Value)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
