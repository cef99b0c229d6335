/*
Package schema wires every logical table named in spec.md §2 item 6 as a
concrete internal/kv.Column, using the key codecs declared in keys.go plus
the value codecs below. This is the "static mapping (column name, key codec,
value codec) per logical table" spec.md §4.2 calls for — one generic
container, no duck-typed per-repository variants, per DESIGN NOTES §9.
*/
package schema

import (
	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/model"
)

// Bucket names. Stable identifiers that form part of the on-disk schema
// (spec.md §6 "Column family names are stable identifiers").
const (
	BucketRawBlock                    = "raw-block"
	BucketBlock                      = "block"
	BucketBlockByHeight               = "block-by-height"
	BucketBlockStateRoot              = "block-state-root"
	BucketTransaction                 = "transaction"
	BucketTransactionByBlockPosition  = "transaction-by-block-position"
	BucketTransactionVin              = "transaction-vin"
	BucketTransactionVout             = "transaction-vout"
	BucketMasternode                  = "masternode"
	BucketMasternodeByHeight          = "masternode-by-height"
	BucketMasternodeStats             = "masternode-stats"
	BucketOracle                      = "oracle"
	BucketOraclePriceFeed             = "oracle-price-feed"
	BucketOraclePriceActive           = "oracle-price-active"
	BucketOraclePriceAggregated       = "oracle-price-aggregated"
	BucketOraclePriceAggregatedInterval = "oracle-price-aggregated-interval"
	BucketOracleTokenCurrency         = "oracle-token-currency"
	BucketPoolSwap                    = "pool-swap"
	BucketPoolSwapAggregated          = "pool-swap-aggregated"
	BucketPoolSwapAggregatedSecondary = "pool-swap-aggregated-by-hash"
	BucketScriptActivity              = "script-activity"
	BucketScriptAggregation           = "script-aggregation"
	BucketScriptUnspent               = "script-unspent"
	BucketVaultAuctionHistory         = "vault-auction-history"
)

// Buckets lists every bucket the schema owns, for kv.Open's up-front
// CreateBucketIfNotExists loop (spec.md §4.1, teacher's
// pkg/storage/boltdb.go pattern). trie and migration own their own buckets
// and are appended by the caller that assembles the full list (cmd/ocean).
func Buckets() []string {
	return []string{
		BucketRawBlock,
		BucketBlock,
		BucketBlockByHeight,
		BucketBlockStateRoot,
		BucketTransaction,
		BucketTransactionByBlockPosition,
		BucketTransactionVin,
		BucketTransactionVout,
		BucketMasternode,
		BucketMasternodeByHeight,
		BucketMasternodeStats,
		BucketOracle,
		BucketOraclePriceFeed,
		BucketOraclePriceActive,
		BucketOraclePriceAggregated,
		BucketOraclePriceAggregatedInterval,
		BucketOracleTokenCurrency,
		BucketPoolSwap,
		BucketPoolSwapAggregated,
		BucketPoolSwapAggregatedSecondary,
		BucketScriptActivity,
		BucketScriptAggregation,
		BucketScriptUnspent,
		BucketVaultAuctionHistory,
	}
}

// Columns holds every projection's Column instance, constructed once
// against a shared *kv.Store (the "KV store as a singleton, typed column
// handles passed by reference" idiom from DESIGN NOTES §9, replacing the
// source's self-referential god-container).
type Columns struct {
	RawBlock                   *kv.Column[[32]byte, []byte]
	Block                      *kv.Column[[32]byte, model.Block]
	BlockByHeight               *kv.Column[uint32, [32]byte]
	// BlockStateRoot records the EVM state trie's root hash as of each block,
	// keyed by block hash, per spec.md §3 "State Trie": "a root hash is
	// recorded per block to allow historical state reads".
	BlockStateRoot              *kv.Column[[32]byte, [32]byte]
	Transaction                 *kv.Column[[32]byte, model.Transaction]
	TransactionByBlockPosition  *kv.Column[BlockPositionKey, [32]byte]
	TransactionVin              *kv.Column[TxVinKey, model.Vin]
	TransactionVout             *kv.Column[TxVoutKey, model.Vout]
	Masternode                  *kv.Column[[32]byte, model.Masternode]
	MasternodeByHeight          *kv.Column[HeightIndexKey, [32]byte]
	MasternodeStats             *kv.Column[uint32, model.MasternodeStats]
	Oracle                      *kv.Column[[32]byte, model.Oracle]
	OraclePriceFeed             *kv.Column[PriceFeedKey, model.PriceFeed]
	OraclePriceActive           *kv.Column[TokenCurrencyKey, model.PriceActive]
	OraclePriceAggregated       *kv.Column[PriceHeightKey, model.PriceAggregated]
	OraclePriceAggregatedInterval *kv.Column[PriceIntervalKey, model.PriceAggregatedInterval]
	OracleTokenCurrency         *kv.Column[OracleTokenCurrencyKey, [32]byte]
	PoolSwap                    *kv.Column[PoolSwapKey, model.PoolSwap]
	PoolSwapAggregated          *kv.Column[PoolSwapAggKey, model.PoolSwapAggregatedBucket]
	PoolSwapAggregatedSecondary *kv.Column[PoolSwapAggSecondaryKey, PoolSwapAggKey]
	ScriptActivity              *kv.Column[ScriptActivityKey, model.ScriptActivity]
	ScriptAggregation           *kv.Column[ScriptHeightKey, model.ScriptAggregation]
	ScriptUnspent               *kv.Column[ScriptHeightTxVoutKey, model.ScriptUnspent]
	VaultAuctionHistory         *kv.Column[VaultAuctionKey, model.VaultAuctionHistory]
}

// New builds every Column against store. Called once at daemon startup
// after migration.Run, mirroring the teacher's single shared storage handle
// wired through the rest of the process.
func New(store *kv.Store) *Columns {
	c := &Columns{
		RawBlock:                   kv.NewColumn[[32]byte, []byte](store, BucketRawBlock, hashKeyCodec{}, kv.RawBytesValue{}),
		Block:                      kv.NewColumn[[32]byte, model.Block](store, BucketBlock, hashKeyCodec{}, kv.GobValue[model.Block]{}),
		BlockByHeight:              kv.NewColumn[uint32, [32]byte](store, BucketBlockByHeight, uint32KeyCodec{}, hashValueCodec{}),
		BlockStateRoot:             kv.NewColumn[[32]byte, [32]byte](store, BucketBlockStateRoot, hashKeyCodec{}, hashValueCodec{}),
		Transaction:                kv.NewColumn[[32]byte, model.Transaction](store, BucketTransaction, hashKeyCodec{}, kv.GobValue[model.Transaction]{}),
		TransactionByBlockPosition: kv.NewColumn[BlockPositionKey, [32]byte](store, BucketTransactionByBlockPosition, blockPositionKeyCodec{}, hashValueCodec{}),
		TransactionVin:             kv.NewColumn[TxVinKey, model.Vin](store, BucketTransactionVin, txVinKeyCodec{}, kv.GobValue[model.Vin]{}),
		TransactionVout:            kv.NewColumn[TxVoutKey, model.Vout](store, BucketTransactionVout, txVoutKeyCodec{}, kv.GobValue[model.Vout]{}),
		Masternode:                 kv.NewColumn[[32]byte, model.Masternode](store, BucketMasternode, hashKeyCodec{}, kv.GobValue[model.Masternode]{}),
		MasternodeByHeight:         kv.NewColumn[HeightIndexKey, [32]byte](store, BucketMasternodeByHeight, heightIndexKeyCodec{}, hashValueCodec{}),
		MasternodeStats:            kv.NewColumn[uint32, model.MasternodeStats](store, BucketMasternodeStats, uint32KeyCodec{}, kv.GobValue[model.MasternodeStats]{}),
		Oracle:                     kv.NewColumn[[32]byte, model.Oracle](store, BucketOracle, hashKeyCodec{}, kv.GobValue[model.Oracle]{}),
		OraclePriceFeed:            kv.NewColumn[PriceFeedKey, model.PriceFeed](store, BucketOraclePriceFeed, priceFeedKeyCodec{}, kv.GobValue[model.PriceFeed]{}),
		OraclePriceActive:          kv.NewColumn[TokenCurrencyKey, model.PriceActive](store, BucketOraclePriceActive, tokenCurrencyKeyCodec{}, kv.GobValue[model.PriceActive]{}),
		OraclePriceAggregated:      kv.NewColumn[PriceHeightKey, model.PriceAggregated](store, BucketOraclePriceAggregated, priceHeightKeyCodec{}, kv.GobValue[model.PriceAggregated]{}),
		OraclePriceAggregatedInterval: kv.NewColumn[PriceIntervalKey, model.PriceAggregatedInterval](store, BucketOraclePriceAggregatedInterval, priceIntervalKeyCodec{}, kv.GobValue[model.PriceAggregatedInterval]{}),
		OracleTokenCurrency:        kv.NewColumn[OracleTokenCurrencyKey, [32]byte](store, BucketOracleTokenCurrency, oracleTokenCurrencyKeyCodec{}, hashValueCodec{}),
		PoolSwap:                   kv.NewColumn[PoolSwapKey, model.PoolSwap](store, BucketPoolSwap, poolSwapKeyCodec{}, kv.GobValue[model.PoolSwap]{}),
		PoolSwapAggregated:         kv.NewColumn[PoolSwapAggKey, model.PoolSwapAggregatedBucket](store, BucketPoolSwapAggregated, poolSwapAggKeyCodec{}, kv.GobValue[model.PoolSwapAggregatedBucket]{}),
		PoolSwapAggregatedSecondary: kv.NewColumn[PoolSwapAggSecondaryKey, PoolSwapAggKey](store, BucketPoolSwapAggregatedSecondary, poolSwapAggSecondaryKeyCodec{}, kv.GobValue[PoolSwapAggKey]{}),
		ScriptActivity:             kv.NewColumn[ScriptActivityKey, model.ScriptActivity](store, BucketScriptActivity, scriptActivityKeyCodec{}, kv.GobValue[model.ScriptActivity]{}),
		ScriptAggregation:          kv.NewColumn[ScriptHeightKey, model.ScriptAggregation](store, BucketScriptAggregation, scriptHeightKeyCodec{}, kv.GobValue[model.ScriptAggregation]{}),
		ScriptUnspent:              kv.NewColumn[ScriptHeightTxVoutKey, model.ScriptUnspent](store, BucketScriptUnspent, scriptHeightTxVoutKeyCodec{}, kv.GobValue[model.ScriptUnspent]{}),
		VaultAuctionHistory:        kv.NewColumn[VaultAuctionKey, model.VaultAuctionHistory](store, BucketVaultAuctionHistory, vaultAuctionKeyCodec{}, kv.GobValue[model.VaultAuctionHistory]{}),
	}

	// InitialKey functions per spec.md §4.2: "all vouts of txid T" starts at
	// (T, 0); analogous partial-key scans for vins, script-activity,
	// script-unspent and script-aggregation's per-HID ranges.
	c.TransactionVout.WithInitialKey(func(partial TxVoutKey) TxVoutKey {
		return TxVoutKey{Txid: partial.Txid, Index: 0}
	})
	c.TransactionVin.WithInitialKey(func(partial TxVinKey) TxVinKey {
		return TxVinKey{Txid: partial.Txid}
	})
	c.ScriptActivity.WithInitialKey(func(partial ScriptActivityKey) ScriptActivityKey {
		return ScriptActivityKey{HID: partial.HID}
	})
	c.ScriptUnspent.WithInitialKey(func(partial ScriptHeightTxVoutKey) ScriptHeightTxVoutKey {
		return ScriptHeightTxVoutKey{HID: partial.HID}
	})
	c.ScriptAggregation.WithInitialKey(func(partial ScriptHeightKey) ScriptHeightKey {
		return ScriptHeightKey{HID: partial.HID}
	})
	c.MasternodeByHeight.WithInitialKey(func(partial HeightIndexKey) HeightIndexKey {
		return HeightIndexKey{Height: partial.Height}
	})

	return c
}

// hashValueCodec stores a 32-byte hash verbatim as a value (used by every
// secondary column whose value is a primary key hash, e.g. block-by-height,
// masternode-by-height).
type hashValueCodec struct{}

func (hashValueCodec) EncodeValue(h [32]byte) ([]byte, error) { return h[:], nil }
func (hashValueCodec) DecodeValue(b []byte) ([32]byte, error) {
	var h [32]byte
	raw, _, err := kv.ReadHash(b, 32)
	if err != nil {
		return h, err
	}
	copy(h[:], raw)
	return h, nil
}
