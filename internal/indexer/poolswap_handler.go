// Pool-swap and composite-swap projection handlers, per spec.md §4.7
// "PoolSwap"/"CompositeSwap". Grounded on
// original_source/lib/ain-ocean/src/indexer/poolswap.rs for the row shape
// and on internal/poolswap.Engine for the bucket arithmetic itself.
package indexer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/poolswap"
	"github.com/defich/ocean/internal/schema"
)

func decimalAmount(raw int64) string {
	return decimal.NewFromInt(raw).Div(decimal.NewFromInt(poolswap.COIN)).StringFixed(8)
}

// applyPoolSwap resolves the side-channel (pool-id, to-amount) result, writes
// the pool-swap row, and folds the from-amount into every tracked interval
// bucket of the resolved pool, per spec.md §4.7 "PoolSwap".
func applyPoolSwap(columns *schema.Columns, engine *poolswap.Engine, height, txIdx uint32, txid [32]byte, result SwapResult, p *PoolSwapPayload) error {
	if err := columns.PoolSwap.Put(schema.PoolSwapKey{PoolID: result.PoolID, Height: height, TxIndex: txIdx}, model.PoolSwap{
		PoolID: result.PoolID, Height: height, TxIndex: txIdx, Txid: txid,
		FromScript: p.FromScript, ToScript: p.ToScript,
		FromTokenID: p.FromTokenID, ToTokenID: p.ToTokenID,
		FromAmount: decimalAmount(p.FromAmount), ToAmount: decimalAmount(result.ToAmount),
	}); err != nil {
		return err
	}
	return engine.Apply(result.PoolID, p.FromTokenID, p.FromAmount, txid)
}

// unapplyPoolSwap reverses applyPoolSwap, per spec.md §4.8.
func unapplyPoolSwap(columns *schema.Columns, engine *poolswap.Engine, height, txIdx uint32, txid [32]byte, result SwapResult, p *PoolSwapPayload) error {
	if err := columns.PoolSwap.Delete(schema.PoolSwapKey{PoolID: result.PoolID, Height: height, TxIndex: txIdx}); err != nil {
		return err
	}
	return engine.Unapply(result.PoolID, p.FromTokenID, p.FromAmount, txid)
}

// compositeSwapTargets lists which pool ids the aggregation applies to, per
// spec.md §4.7 "CompositeSwap" and Open Question (b): an empty intermediate
// list aggregates only the result's final pool id.
func compositeSwapTargets(result SwapResult, p *CompositeSwapPayload) []uint32 {
	if len(p.IntermediatePools) == 0 {
		return []uint32{result.PoolID}
	}
	return p.IntermediatePools
}

// applyCompositeSwap writes the same pool-swap row as a direct swap, then
// aggregates into every listed intermediate pool (or the result's final pool
// id when none are listed), per spec.md §4.7.
func applyCompositeSwap(columns *schema.Columns, engine *poolswap.Engine, height, txIdx uint32, txid [32]byte, result SwapResult, p *CompositeSwapPayload) error {
	if err := columns.PoolSwap.Put(schema.PoolSwapKey{PoolID: result.PoolID, Height: height, TxIndex: txIdx}, model.PoolSwap{
		PoolID: result.PoolID, Height: height, TxIndex: txIdx, Txid: txid,
		FromScript: p.PoolSwap.FromScript, ToScript: p.PoolSwap.ToScript,
		FromTokenID: p.PoolSwap.FromTokenID, ToTokenID: p.PoolSwap.ToTokenID,
		FromAmount: decimalAmount(p.PoolSwap.FromAmount), ToAmount: decimalAmount(result.ToAmount),
	}); err != nil {
		return err
	}
	for _, poolID := range compositeSwapTargets(result, p) {
		if err := engine.Apply(poolID, p.PoolSwap.FromTokenID, p.PoolSwap.FromAmount, txid); err != nil {
			return err
		}
	}
	return nil
}

// unapplyCompositeSwap reverses applyCompositeSwap, per spec.md §4.8.
func unapplyCompositeSwap(columns *schema.Columns, engine *poolswap.Engine, height, txIdx uint32, txid [32]byte, result SwapResult, p *CompositeSwapPayload) error {
	if err := columns.PoolSwap.Delete(schema.PoolSwapKey{PoolID: result.PoolID, Height: height, TxIndex: txIdx}); err != nil {
		return err
	}
	for _, poolID := range compositeSwapTargets(result, p) {
		if err := engine.Unapply(poolID, p.PoolSwap.FromTokenID, p.PoolSwap.FromAmount, txid); err != nil {
			return err
		}
	}
	return nil
}

// requireSwapResult fetches txid's side-channel result, erroring if the
// EVM/consensus layer never populated one, per spec.md §4.7 "PoolSwap".
func requireSwapResult(ix *Indexer, txid [32]byte) (SwapResult, error) {
	result, ok := ix.takeSwapResult(txid)
	if !ok {
		return SwapResult{}, fmt.Errorf("%w: tx(%x)", ocerr.ErrMissingSideChannelResult, txid)
	}
	return result, nil
}
