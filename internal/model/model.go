// Package model holds the typed records persisted by the indexer's
// projections, per spec.md §3. Every type here is a plain, gob-friendly
// struct: field order is part of the on-disk schema contract (spec.md §4.2),
// so fields are appended, never reordered or removed, across migrations.
package model

import "crypto/sha256"

// ScriptTypeEVM marks a vout script as EVM-specific; such vouts are skipped
// by script-activity/unspent/aggregation bookkeeping (spec.md §4.6 step 2:
// "script is known and not EVM-specific") since their balances live in the
// state trie instead.
const ScriptTypeEVM = "evm"

// ComputeHID derives the fixed-size hash identifier of a locking script
// from its hex-encoded bytes, per GLOSSARY "HID". SHA-256 is used rather
// than the EVM's Keccak-256 (reserved for trie/DST20 addressing, see
// internal/trie) since a script is a UTXO-model object, not EVM state.
func ComputeHID(scriptHex string) HID {
	return HID(sha256.Sum256([]byte(scriptHex)))
}

// Block is the per-height block header projection, per spec.md §3 "Block".
type Block struct {
	Hash       [32]byte
	ParentHash [32]byte
	Height     uint32
	MedianTime int64
	Time       int64
	Difficulty uint32
	Version    int32
	// MinterBlockCount is the minting masternode's running minted-block
	// counter at this height, supplemented from original_source/ain-ocean
	// (spec.md §3.1 in SPEC_FULL.md).
	MinterBlockCount uint32
	TxCount          uint32
}

// Transaction is the per-tx header projection, per spec.md §3 "Transaction".
type Transaction struct {
	Txid        [32]byte
	BlockHash   [32]byte
	Height      uint32
	Position    uint32
	Size        uint32
	VSize       uint32
	Weight      uint32
	Version     int32
	LockTime    uint32
	VinCount    uint32
	VoutCount   uint32
	TotalVout   int64
}

// Vin is one transaction input, keyed (txid, prev-txid, prev-vout) when
// Standard, per spec.md §3.
type Vin struct {
	Txid       [32]byte
	Coinbase   bool
	PrevTxid   [32]byte
	PrevVout   uint32
	ScriptHex  string
	Sequence   uint32
}

// Vout is one transaction output, keyed (txid, vout-index), per spec.md §3.
type Vout struct {
	Txid      [32]byte
	Index     uint32
	Value     int64
	TokenID   uint64
	HasToken  bool
	ScriptHex string
	ScriptType string
}

// Direction distinguishes a script-activity row's in/out side, per spec.md
// §3 "Script-Activity".
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
)

// HID is the fixed-size hash identifier of a locking script, per GLOSSARY.
type HID [32]byte

// ScriptActivity is one row per (script, direction, txid, vin-or-vout-index),
// per spec.md §3.
type ScriptActivity struct {
	HID       HID
	Height    uint32
	Txid      [32]byte
	Index     uint32
	Direction Direction
	Value     int64
}

// ScriptUnspent is the current UTXO set projection, keyed
// (HID, height, txid, vout-index), per spec.md §3.
type ScriptUnspent struct {
	HID        HID
	Height     uint32
	Txid       [32]byte
	VoutIndex  uint32
	Value      int64
	TokenID    uint64
	HasToken   bool
	ScriptHex  string
}

// ScriptAggregation is the per-(HID, height) rolling total row, per spec.md
// §3 "Script-Aggregation". TxInSum/TxInCount accumulate vout (funds arriving)
// events; TxOutSum/TxOutCount accumulate vin (funds spent) events — resolved
// this way against invariant §8.3 and scenarios S1/S2, which pin
// unspent=tx_in_sum-tx_out_sum as a received-minus-spent balance, over the
// prose's literal (and inverted) wording.
type ScriptAggregation struct {
	HID        HID
	Height     uint32
	TxCount    uint32
	TxInCount  uint32
	TxOutCount uint32
	TxInSum    int64
	TxOutSum   int64
	Unspent    int64
	// EventsThisHeight counts activity events folded into this row since it
	// was last carried forward from an earlier height. Invalidation deletes
	// the row outright once this reaches zero, restoring "no row existed at
	// this height" rather than leaving a stale carried-forward shell behind.
	EventsThisHeight uint32
}

// OwnerOperatorChange is one entry in a masternode's bounded history of
// owner/operator changes, per spec.md §3 "Masternode".
type OwnerOperatorChange struct {
	Height          uint32
	OwnerAddress    string
	OperatorAddress string
}

// Masternode is keyed by its creation txid, per spec.md §3 / GLOSSARY.
type Masternode struct {
	ID              [32]byte
	OwnerAddress    string
	OperatorAddress string
	// TimeLock is supplemented from original_source/ain-ocean's masternode
	// timelock field (SPEC_FULL.md §3.1); 0 means no timelock.
	TimeLock       uint16
	Collateral     int64
	CreationHeight uint32
	HasResigned    bool
	ResignHeight   uint32
	ResignTxid     [32]byte
	MintedBlocks   uint32
	History        []OwnerOperatorChange
}

// TimeLockBucket is one entry of masternode-stats' bucketed time-locked
// counts, per spec.md §3 "Masternode-Stats".
type TimeLockBucket struct {
	Weeks uint16
	Count uint32
}

// MasternodeStats is the per-height snapshot, per spec.md §3.
type MasternodeStats struct {
	Height           uint32
	TotalCount       uint32
	TotalTVLCollateral int64
	TimeLocked       []TimeLockBucket
}

// TokenCurrency is one (token, currency) feed declaration owned by an
// oracle, per spec.md §3 "Oracle".
type TokenCurrency struct {
	Token    string
	Currency string
}

// OracleState is one entry of an oracle's bounded update history, the same
// "push prior state, apply new" pattern spec.md §4.7 describes for
// masternode owner/operator changes, generalized here to UpdateOracle
// (the original leaves UpdateOracle unimplemented; this is the repo's own
// design decision, recorded in DESIGN.md).
type OracleState struct {
	Height    uint32
	Weightage uint8
	Feeds     []TokenCurrency
}

// Oracle is keyed by oracle id, per spec.md §3.
type Oracle struct {
	ID        [32]byte
	Owner     string
	Weightage uint8
	Feeds     []TokenCurrency
	// Removed marks a soft-deleted oracle (RemoveOracle), kept in place
	// rather than physically deleted so invalidation can cheaply flip it
	// back rather than needing to recreate the whole row from scratch.
	Removed bool
	History []OracleState
}

// PriceFeedState is the liveness tag supplemented from
// original_source/ain-ocean's oracle price-feed state field, per SPEC_FULL.md
// §3.1.
type PriceFeedState string

const (
	PriceFeedStateLive    PriceFeedState = "Live"
	PriceFeedStateExpired PriceFeedState = "Expired"
)

// PriceFeed is one published datapoint, keyed (token, currency, oracle-id,
// txid), per spec.md §3 "Oracle".
type PriceFeed struct {
	Token     string
	Currency  string
	OracleID  [32]byte
	Txid      [32]byte
	Height    uint32
	Time      int64
	Amount    string
	State     PriceFeedState
}

// PriceAggregated is the derived weighted, live-oracle-filtered average,
// keyed (token, currency, height), per spec.md §3 / §4.7.
type PriceAggregated struct {
	Token    string
	Currency string
	Height   uint32
	Time     int64
	Amount   string
	Active   uint32
}

// PriceAggregatedInterval mirrors PriceAggregated bucketed by interval,
// carried over from the same recompute step in §4.7.
type PriceAggregatedInterval struct {
	Token    string
	Currency string
	Interval uint32
	Start    int64
	Amount   string
	Active   uint32
}

// PriceActiveSnapshot is one entry of a price-active row's pre-tick history,
// pushed before each tick overwrites the row so invalidation can restore the
// exact prior state (the tick is a promote-and-overwrite, not a reversible
// delta, unlike the additive projections elsewhere in this package).
type PriceActiveSnapshot struct {
	Height uint32
	Active *string
	Next   *string
	IsLive bool
}

// PriceActive is the two-slot {active, next} liveness pair for loan-token
// pricing, keyed (token, currency), per spec.md §3 / §4.7.
type PriceActive struct {
	Token    string
	Currency string
	Height   uint32
	Active   *string
	Next     *string
	IsLive   bool
	History  []PriceActiveSnapshot
}

// PoolSwap is one row per swap, keyed (pool-id, height, tx-index), per
// spec.md §3 "Pool-Swap".
type PoolSwap struct {
	PoolID     uint32
	Height     uint32
	TxIndex    uint32
	Txid       [32]byte
	FromScript string
	ToScript   string
	FromTokenID uint64
	ToTokenID   uint64
	FromAmount  string
	ToAmount    string
}

// PoolSwapAggregatedBucket is one (pool-id, interval, bucket-start) entry,
// per spec.md §3 / §4.9.
type PoolSwapAggregatedBucket struct {
	PoolID      uint32
	Interval    uint32
	BucketStart int64
	Amounts     map[uint64]string
}

// VaultAuctionHistory is supplemented from original_source/ain-ocean
// (SPEC_FULL.md §3.1): one bid record for a liquidation auction.
type VaultAuctionHistory struct {
	VaultID      [32]byte
	AuctionIndex uint32
	Height       uint32
	Txid         [32]byte
	Address      string
	TokenAmount  string
	TokenID      uint64
}
