/*
Package poolswap implements the pool-swap aggregation engine described in
spec.md §4.9: two always-tracked bucket intervals (24h, 1h), a
descending-scan lookup for the latest bucket, and arbitrary-precision
fixed-point accumulation of traded amounts.

Grounded on original_source/lib/ain-ocean/src/indexer/poolswap.rs
(`index_swap_aggregated`/`invalidate_swap_aggregated`): scan descending from
(pool-id, interval, i64::MAX), take the first item whose (pool-id, interval)
prefix still matches, decode its amounts map, add/subtract this swap's
from-amount scaled by COIN, write it back. The indexer never creates
buckets — they are assumed pre-created by an out-of-band tick (spec.md
§4.9) — so a missing bucket is logged and the swap skipped, not an error.
*/
package poolswap

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/log"
	"github.com/defich/ocean/internal/metrics"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/schema"
)

// COIN is DeFiChain's satoshi-style base-unit scale: amounts are persisted
// as the smallest integer unit and converted to a decimal amount by
// dividing by COIN, per spec.md §4.7 "PoolSwap" and the original's
// `ain_dftx::COIN` constant.
const COIN = 100_000_000

// Interval is one of the two always-tracked bucket widths, per spec.md §4.9.
type Interval uint32

const (
	IntervalOneDay  Interval = 86400
	IntervalOneHour Interval = 3600
)

// Intervals is the fixed, always-tracked set, in the order the original
// indexes them (one-day before one-hour).
var Intervals = []Interval{IntervalOneDay, IntervalOneHour}

// Engine mutates pool-swap-aggregated buckets. It is owned exclusively by
// the indexer goroutine (spec.md §5: "the in-memory pool-swap aggregate
// cursor is not shared across threads").
type Engine struct {
	columns *schema.Columns
}

// New constructs an Engine bound to the shared column set.
func New(columns *schema.Columns) *Engine {
	return &Engine{columns: columns}
}

// latestBucket finds the bucket whose key is the greatest (pool-id,
// interval, <= i64::MAX), i.e. the most recently created one, matching
// spec.md §4.9's "descending scan from (pool-id, interval, i64::MAX), takes
// the first item whose prefix still matches". Returns ok=false if no bucket
// exists for this pool/interval (the swap is skipped, never an error).
func (e *Engine) latestBucket(poolID uint32, interval Interval) (model.PoolSwapAggregatedBucket, schema.PoolSwapAggKey, bool, error) {
	from := schema.PoolSwapAggKey{PoolID: poolID, Interval: uint32(interval), BucketStart: math.MaxInt64}
	for pair, err := range e.columns.PoolSwapAggregated.List(&from, kv.Reverse) {
		if err != nil {
			return model.PoolSwapAggregatedBucket{}, schema.PoolSwapAggKey{}, false, err
		}
		if pair.Key.PoolID != poolID || pair.Key.Interval != uint32(interval) {
			return model.PoolSwapAggregatedBucket{}, schema.PoolSwapAggKey{}, false, nil
		}
		return pair.Value, pair.Key, true, nil
	}
	return model.PoolSwapAggregatedBucket{}, schema.PoolSwapAggKey{}, false, nil
}

// amountOf returns the decimal value currently recorded for fromTokenID in
// bucket, defaulting to zero when the token hasn't traded in this bucket
// yet.
func amountOf(bucket model.PoolSwapAggregatedBucket, fromTokenID uint64) (decimal.Decimal, error) {
	raw, ok := bucket.Amounts[fromTokenID]
	if !ok {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// Apply adds this swap's from-amount (scaled by COIN) into the latest
// bucket of every tracked interval, per spec.md §4.9/§4.7 "PoolSwap". A
// missing bucket is logged and skipped, never an error (spec.md §4.9,
// boundary behavior in spec.md §8).
func (e *Engine) Apply(poolID uint32, fromTokenID uint64, fromAmount int64, txid [32]byte) error {
	return e.adjust(poolID, fromTokenID, fromAmount, txid, false)
}

// Unapply reverses Apply using the same arithmetic with inverted sign, per
// spec.md §4.8 ("the undo path uses the same arithmetic as the do path but
// with inverted sign").
func (e *Engine) Unapply(poolID uint32, fromTokenID uint64, fromAmount int64, txid [32]byte) error {
	return e.adjust(poolID, fromTokenID, fromAmount, txid, true)
}

func (e *Engine) adjust(poolID uint32, fromTokenID uint64, fromAmount int64, txid [32]byte, invert bool) error {
	logger := log.WithComponent("poolswap")
	delta := decimal.NewFromInt(fromAmount).Div(decimal.NewFromInt(COIN))
	if invert {
		delta = delta.Neg()
	}

	for _, interval := range Intervals {
		bucket, key, ok, err := e.latestBucket(poolID, interval)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn().
				Uint32("pool_id", poolID).
				Uint32("interval", uint32(interval)).
				Hex("txid", txid[:]).
				Msg("no aggregation bucket found, skipping swap")
			metrics.PoolSwapBucketSkippedTotal.Inc()
			continue
		}

		current, err := amountOf(bucket, fromTokenID)
		if err != nil {
			return err
		}
		updated := current.Add(delta)

		if bucket.Amounts == nil {
			bucket.Amounts = make(map[uint64]string)
		}
		bucket.Amounts[fromTokenID] = updated.StringFixed(8)

		if err := e.columns.PoolSwapAggregated.Put(key, bucket); err != nil {
			return err
		}
	}
	return nil
}
