package indexer

import (
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/schema"
)

// applyLiquidationAuctionBid writes the vault-auction-history row for this
// bid, per SPEC_FULL.md §3.1 "VaultAuctionHistory": one row per
// (vault-id, auction-index), overwritten by each new winning bid.
func applyLiquidationAuctionBid(columns *schema.Columns, height uint32, txid [32]byte, p *LiquidationAuctionBidPayload) error {
	key := schema.VaultAuctionKey{VaultID: p.VaultID, AuctionIndex: p.AuctionIndex}
	row := model.VaultAuctionHistory{
		VaultID:      p.VaultID,
		AuctionIndex: p.AuctionIndex,
		Height:       height,
		Txid:         txid,
		Address:      p.Address,
		TokenAmount:  p.TokenAmount,
		TokenID:      p.TokenID,
	}
	return columns.VaultAuctionHistory.Put(key, row)
}

// unapplyLiquidationAuctionBid deletes the row this bid wrote, per spec.md
// §4.8. A prior outbid row at the same (vault-id, auction-index) is not
// recoverable here (it was overwritten, not history-stacked), matching how
// the original discards superseded bids rather than tracking them.
func unapplyLiquidationAuctionBid(columns *schema.Columns, p *LiquidationAuctionBidPayload) error {
	key := schema.VaultAuctionKey{VaultID: p.VaultID, AuctionIndex: p.AuctionIndex}
	return columns.VaultAuctionHistory.Delete(key)
}
