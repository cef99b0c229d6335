// InvalidateTip implements spec.md §4.8's reverse indexing path: undo the
// forward steps in reverse order with reversed semantics, tip-only.
package indexer

import (
	"context"
	"fmt"

	"github.com/defich/ocean/internal/metrics"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/schema"
)

// InvalidateTip undoes the current tip block, per spec.md §4.8. src must
// return the same decoded BlockInput for the tip's height that IndexBlock
// originally consumed (re-decoded from the raw-block column upstream); the
// EVM/consensus layer must re-populate SetSwapResult for every pool-swap or
// composite-swap tx in that block before calling this, exactly as it does
// before IndexBlock.
func (ix *Indexer) InvalidateTip(ctx context.Context, src BlockSource) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.IndexerBlockDuration.WithLabelValues("invalidate"))

	tipRow, ok, err := ix.Tip()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no tip to invalidate", ocerr.ErrNotFoundDuringInvalidation)
	}

	block, err := src.BlockAtHeight(ctx, tipRow.Height)
	if err != nil {
		return err
	}
	if block.Hash != tipRow.Hash {
		return fmt.Errorf("%w: block source returned a different block at height %d than the indexed tip", ocerr.ErrValidation, tipRow.Height)
	}

	// Step 5 undo: loan-token active-price tick.
	if ix.preset.ActivePriceTickInterval > 0 && block.Height%ix.preset.ActivePriceTickInterval == 0 {
		if err := unapplyActivePriceTick(ix.columns); err != nil {
			return err
		}
	}

	// Step 4 undo: masternode-stats snapshot.
	if ix.preset.MasternodeStatsSnapshotInterval > 0 && block.Height%ix.preset.MasternodeStatsSnapshotInterval == 0 {
		if err := unapplyMasternodeStats(ix.columns, block.Height); err != nil {
			return err
		}
	}

	// Step 2 undo: reverse-ordered transactions.
	for i := len(block.Txs) - 1; i >= 0; i-- {
		txIdx := uint32(i)
		if err := ix.unindexTransaction(*block, txIdx, block.Txs[i]); err != nil {
			return fmt.Errorf("tx %x: %w", block.Txs[i].Txid, err)
		}
	}

	// Step 1 undo: block header, height secondary, state root, raw block.
	if err := ix.columns.BlockStateRoot.Delete(block.Hash); err != nil {
		return err
	}
	if err := ix.columns.BlockByHeight.Delete(block.Height); err != nil {
		return err
	}
	if err := ix.columns.Block.Delete(block.Hash); err != nil {
		return err
	}
	if err := ix.columns.RawBlock.Delete(block.Hash); err != nil {
		return err
	}
	ix.cache.RemoveBlock(tipRow)

	parent, found, err := ix.columns.Block.Get(block.ParentHash)
	if err != nil {
		return err
	}
	if found {
		ix.cache.LatestBlock.Set(parent)
	} else {
		ix.cache.LatestBlock.Clear()
	}

	metrics.IndexerBlocksInvalidatedTotal.Inc()
	if found {
		metrics.IndexerHeight.Set(float64(parent.Height))
	} else {
		metrics.IndexerHeight.Set(0)
	}
	return nil
}

// unindexTransaction reverses indexTransaction: operation, then vouts, then
// vins (each in reverse index order), then the transaction's own rows, per
// spec.md §4.8.
func (ix *Indexer) unindexTransaction(block BlockInput, txIdx uint32, tx TxInput) error {
	if err := ix.unapplyOperation(block.Height, block.Time, txIdx, tx.Txid, tx.Vouts, tx.Operation); err != nil {
		return err
	}

	for i := len(tx.Vouts) - 1; i >= 0; i-- {
		vout := tx.Vouts[i]
		if isTrackedScript(vout.ScriptType) {
			if err := unapplyVoutActivity(ix.columns, block.Height, tx.Txid, vout, uint32(i)); err != nil {
				return err
			}
		}
		if err := ix.columns.TransactionVout.Delete(schema.TxVoutKey{Txid: tx.Txid, Index: uint32(i)}); err != nil {
			return err
		}
	}

	for i := len(tx.Vins) - 1; i >= 0; i-- {
		vin := tx.Vins[i]
		if err := unapplyVinActivity(ix.columns, block.Height, tx.Txid, vin, uint32(i)); err != nil {
			return err
		}
		if err := ix.columns.TransactionVin.Delete(schema.TxVinKey{Txid: tx.Txid, PrevTxid: vin.PrevTxid, PrevVout: vin.PrevVout}); err != nil {
			return err
		}
	}

	if err := ix.columns.TransactionByBlockPosition.Delete(schema.BlockPositionKey{BlockHash: block.Hash, Position: txIdx}); err != nil {
		return err
	}
	if err := ix.columns.Transaction.Delete(tx.Txid); err != nil {
		return err
	}
	ix.cache.RemoveTransaction(tx.Txid)
	return nil
}

// unapplyOperation reverses applyOperation, per spec.md §4.8.
func (ix *Indexer) unapplyOperation(height uint32, blockTime int64, txIdx uint32, txid [32]byte, vouts []VoutInput, op *Operation) error {
	if op == nil {
		return nil
	}
	switch op.Kind {
	case OpCreateMasternode:
		return unapplyCreateMasternode(ix.columns, height, txIdx, txid)
	case OpUpdateMasternode:
		return unapplyUpdateMasternode(ix.columns, op.UpdateMasternode)
	case OpResignMasternode:
		return unapplyResignMasternode(ix.columns, op.ResignMasternode)
	case OpAppointOracle:
		return unapplyAppointOracle(ix.columns, op.AppointOracle)
	case OpRemoveOracle:
		return unapplyRemoveOracle(ix.columns, op.RemoveOracle)
	case OpUpdateOracle:
		return unapplyUpdateOracle(ix.columns, op.UpdateOracle)
	case OpSetOracleData:
		return unapplySetOracleData(ix.columns, height, blockTime, txid, op.SetOracleData)
	case OpPoolSwap:
		result, err := requireSwapResult(ix, txid)
		if err != nil {
			return err
		}
		return unapplyPoolSwap(ix.columns, ix.poolswap, height, txIdx, txid, result, op.PoolSwap)
	case OpCompositeSwap:
		result, err := requireSwapResult(ix, txid)
		if err != nil {
			return err
		}
		return unapplyCompositeSwap(ix.columns, ix.poolswap, height, txIdx, txid, result, op.CompositeSwap)
	case OpSetLoanToken:
		return unapplySetLoanToken(ix.columns, op.SetLoanToken)
	case OpEVMSystem:
		// The trie is content-addressed: Step-1-undo already drops this
		// block's BlockStateRoot pointer, which is sufficient to make every
		// node it alone reached unreachable. There is nothing to replay here.
		return nil
	case OpLiquidationAuctionBid:
		return unapplyLiquidationAuctionBid(ix.columns, op.LiquidationAuctionBid)
	}
	return nil
}
