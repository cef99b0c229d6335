// IndexBlock implements spec.md §4.6's five-step forward indexing path.
package indexer

import (
	"context"
	"fmt"

	"github.com/defich/ocean/internal/metrics"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/schema"
	"github.com/defich/ocean/internal/trie"
)

// IndexBlock appends one block to every projection, per spec.md §4.6. It
// holds the indexer-wide lock for its whole duration (spec.md §5: "the
// indexer is the sole writer to all projections").
func (ix *Indexer) IndexBlock(ctx context.Context, block BlockInput) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.IndexerBlockDuration.WithLabelValues("forward"))

	// Step 1: raw block.
	if err := ix.columns.RawBlock.Put(block.Hash, block.Raw); err != nil {
		return fmt.Errorf("%w: put raw block: %v", ocerr.ErrStorage, err)
	}

	root, err := ix.stateRootAt(block.ParentHash)
	if err != nil {
		return err
	}
	view := trie.NewMutable(ix.trieKV, root)

	// Step 2: per-transaction indexing.
	for i, tx := range block.Txs {
		if err := ix.indexTransaction(block, uint32(i), tx, view); err != nil {
			return fmt.Errorf("tx %x: %w", tx.Txid, err)
		}
	}

	if err := ix.columns.BlockStateRoot.Put(block.Hash, view.Root()); err != nil {
		return fmt.Errorf("%w: put state root: %v", ocerr.ErrStorage, err)
	}

	// Step 3: block header + height secondary + latest-block.
	blockRow := model.Block{
		Hash: block.Hash, ParentHash: block.ParentHash, Height: block.Height,
		MedianTime: block.MedianTime, Time: block.Time, Difficulty: block.Difficulty,
		Version: block.Version, MinterBlockCount: block.MinterBlockCount,
		TxCount: uint32(len(block.Txs)),
	}
	if err := ix.columns.Block.Put(block.Hash, blockRow); err != nil {
		return err
	}
	if err := ix.columns.BlockByHeight.Put(block.Height, block.Hash); err != nil {
		return err
	}
	ix.cache.PutBlock(blockRow)

	// Step 4: masternode-stats snapshot.
	if ix.preset.MasternodeStatsSnapshotInterval > 0 && block.Height%ix.preset.MasternodeStatsSnapshotInterval == 0 {
		if err := snapshotMasternodeStats(ix.columns, block.Height); err != nil {
			return err
		}
	}

	// Step 5: loan-token active-price tick.
	if ix.preset.ActivePriceTickInterval > 0 && block.Height%ix.preset.ActivePriceTickInterval == 0 {
		if err := runActivePriceTick(ix.columns, block.Height, block.Time); err != nil {
			return err
		}
	}

	metrics.IndexerHeight.Set(float64(block.Height))
	metrics.IndexerBlocksIndexedTotal.Inc()
	return nil
}

// stateRootAt resolves the trie root to build on: the parent block's
// recorded root, or GenesisStateRoot for the chain's first block, per
// spec.md §4.4.
func (ix *Indexer) stateRootAt(parentHash [32]byte) ([32]byte, error) {
	if parentHash == ([32]byte{}) {
		return trie.GenesisStateRoot, nil
	}
	root, ok, err := ix.columns.BlockStateRoot.Get(parentHash)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return trie.GenesisStateRoot, nil
	}
	return root, nil
}

// indexTransaction writes one transaction's header/vin/vout rows, folds its
// vouts/vins into script-activity/unspent/aggregation, and applies its
// typed operation, per spec.md §4.6 step 2.
func (ix *Indexer) indexTransaction(block BlockInput, txIdx uint32, tx TxInput, view *trie.Mutable) error {
	var totalVout int64
	for _, vout := range tx.Vouts {
		totalVout += vout.Value
	}

	txRow := model.Transaction{
		Txid: tx.Txid, BlockHash: block.Hash, Height: block.Height, Position: txIdx,
		Size: tx.Size, VSize: tx.VSize, Weight: tx.Weight, Version: tx.Version, LockTime: tx.LockTime,
		VinCount: uint32(len(tx.Vins)), VoutCount: uint32(len(tx.Vouts)), TotalVout: totalVout,
	}
	if err := ix.columns.Transaction.Put(tx.Txid, txRow); err != nil {
		return err
	}
	if err := ix.columns.TransactionByBlockPosition.Put(schema.BlockPositionKey{BlockHash: block.Hash, Position: txIdx}, tx.Txid); err != nil {
		return err
	}
	ix.cache.PutTransaction(txRow)

	for i, vin := range tx.Vins {
		vinRow := model.Vin{Txid: tx.Txid, Coinbase: vin.Coinbase, PrevTxid: vin.PrevTxid, PrevVout: vin.PrevVout, Sequence: vin.Sequence}
		if err := ix.columns.TransactionVin.Put(schema.TxVinKey{Txid: tx.Txid, PrevTxid: vin.PrevTxid, PrevVout: vin.PrevVout}, vinRow); err != nil {
			return err
		}
		if err := applyVinActivity(ix.columns, block.Height, tx.Txid, vin, uint32(i)); err != nil {
			return err
		}
	}

	for i, vout := range tx.Vouts {
		voutRow := model.Vout{
			Txid: tx.Txid, Index: uint32(i), Value: vout.Value, TokenID: vout.TokenID,
			HasToken: vout.HasToken, ScriptHex: vout.ScriptHex, ScriptType: vout.ScriptType,
		}
		if err := ix.columns.TransactionVout.Put(schema.TxVoutKey{Txid: tx.Txid, Index: uint32(i)}, voutRow); err != nil {
			return err
		}
		if isTrackedScript(vout.ScriptType) {
			if err := applyVoutActivity(ix.columns, block.Height, tx.Txid, vout, uint32(i)); err != nil {
				return err
			}
		}
	}

	return ix.applyOperation(block.Height, block.Time, txIdx, tx.Txid, tx.Vouts, tx.Operation, view)
}

// applyOperation dispatches a transaction's typed operation to its
// projection handler, per spec.md §4.7.
func (ix *Indexer) applyOperation(height uint32, blockTime int64, txIdx uint32, txid [32]byte, vouts []VoutInput, op *Operation, view *trie.Mutable) error {
	if op == nil {
		return nil
	}
	switch op.Kind {
	case OpCreateMasternode:
		return applyCreateMasternode(ix.columns, height, txIdx, txid, vouts, op.CreateMasternode)
	case OpUpdateMasternode:
		return applyUpdateMasternode(ix.columns, vouts, op.UpdateMasternode)
	case OpResignMasternode:
		return applyResignMasternode(ix.columns, height, txid, op.ResignMasternode)
	case OpAppointOracle:
		return applyAppointOracle(ix.columns, op.AppointOracle)
	case OpRemoveOracle:
		return applyRemoveOracle(ix.columns, op.RemoveOracle)
	case OpUpdateOracle:
		return applyUpdateOracle(ix.columns, height, op.UpdateOracle)
	case OpSetOracleData:
		return applySetOracleData(ix.columns, height, blockTime, txid, op.SetOracleData)
	case OpPoolSwap:
		result, err := requireSwapResult(ix, txid)
		if err != nil {
			return err
		}
		return applyPoolSwap(ix.columns, ix.poolswap, height, txIdx, txid, result, op.PoolSwap)
	case OpCompositeSwap:
		result, err := requireSwapResult(ix, txid)
		if err != nil {
			return err
		}
		return applyCompositeSwap(ix.columns, ix.poolswap, height, txIdx, txid, result, op.CompositeSwap)
	case OpSetLoanToken:
		return applySetLoanToken(ix.columns, op.SetLoanToken)
	case OpEVMSystem:
		return applyEVMSystem(view, op.EVMSystem)
	case OpLiquidationAuctionBid:
		return applyLiquidationAuctionBid(ix.columns, height, txid, op.LiquidationAuctionBid)
	}
	return nil
}
