// Package indexer drives forward indexing and invalidation of blocks
// against every projection named in spec.md §2 item 6, per spec.md
// §4.6–§4.8. Consensus-level transaction parsing is assumed to already
// yield typed transaction records (spec.md §1): the types below are the
// indexer's input contract, not a wire decoder.
package indexer

// VinInput is one already-decoded transaction input.
type VinInput struct {
	Coinbase bool
	PrevTxid [32]byte
	PrevVout uint32
	Sequence uint32
}

// VoutInput is one already-decoded transaction output.
type VoutInput struct {
	Value      int64
	TokenID    uint64
	HasToken   bool
	ScriptHex  string
	ScriptType string
	// Address is the script's decoded address, when one exists. Several
	// projection handlers need it directly (CreateMasternode's "owner
	// address is vout[1]'s decoded address", spec.md §4.7) rather than
	// re-deriving it from ScriptHex, since address decoding is a consensus
	// concern out of scope here (spec.md §1).
	Address string
}

// OperationKind tags which typed operation a transaction carries, per
// spec.md §4.6 step 2's list (create/update/resign masternode,
// appoint/remove/update oracle, set-oracle-data, pool-swap, composite-swap,
// set-loan-token, EVM-system operations, liquidation-auction-bid).
type OperationKind int

const (
	OpNone OperationKind = iota
	OpCreateMasternode
	OpUpdateMasternode
	OpResignMasternode
	OpAppointOracle
	OpRemoveOracle
	OpUpdateOracle
	OpSetOracleData
	OpPoolSwap
	OpCompositeSwap
	OpSetLoanToken
	OpEVMSystem
	OpLiquidationAuctionBid
)

// CreateMasternodePayload carries CreateMasternode's operator declaration,
// per spec.md §4.7 "CreateMasternode".
type CreateMasternodePayload struct {
	// OperatorType selects the script derivation: 1 for P2PKH, 4 for
	// P2WPKH, per spec.md §4.7.
	OperatorType uint8
	OperatorHash [20]byte
	TimeLock     uint16
}

// UpdateMasternodePayload carries UpdateMasternode's rewrite instruction,
// per spec.md §4.7 "UpdateMasternode".
type UpdateMasternodePayload struct {
	MasternodeID [32]byte
	// UpdateType: 0x1 rewrites owner from vout[1]; 0x2 rewrites operator
	// from OperatorHash/OperatorType, per spec.md §4.7.
	UpdateType   uint8
	OperatorType uint8
	OperatorHash [20]byte
}

// ResignMasternodePayload carries ResignMasternode's target, per spec.md
// §4.7 "ResignMasternode".
type ResignMasternodePayload struct {
	MasternodeID [32]byte
}

// AppointOraclePayload carries AppointOracle's initial declaration.
type AppointOraclePayload struct {
	OracleID  [32]byte
	Owner     string
	Weightage uint8
	Feeds     []TokenCurrencyInput
}

// TokenCurrencyInput is one (token, currency) pair an oracle declares.
type TokenCurrencyInput struct {
	Token    string
	Currency string
}

// RemoveOraclePayload carries RemoveOracle's target.
type RemoveOraclePayload struct {
	OracleID [32]byte
}

// UpdateOraclePayload carries UpdateOracle's rewrite of weightage/feeds.
type UpdateOraclePayload struct {
	OracleID  [32]byte
	Weightage uint8
	Feeds     []TokenCurrencyInput
}

// PricePoint is one (token, amount) pair inside a SetOracleData operation.
type PricePoint struct {
	Token    string
	Currency string
	Amount   string
}

// SetOracleDataPayload carries one block's published datapoints for one
// oracle, per spec.md §4.7 "Oracle set-oracle-data".
type SetOracleDataPayload struct {
	OracleID  [32]byte
	Timestamp int64
	Prices    []PricePoint
}

// PoolSwapPayload carries a direct swap's script/token/amount fields, per
// spec.md §3 "Pool-Swap". The resolved (pool-id, to-amount) is looked up
// separately from the side-channel result table, per spec.md §4.7.
type PoolSwapPayload struct {
	FromScript  string
	ToScript    string
	FromTokenID uint64
	ToTokenID   uint64
	FromAmount  int64
}

// CompositeSwapPayload carries a composite swap's direct leg plus its
// optional list of intermediate pool ids, per spec.md §4.7 "CompositeSwap".
type CompositeSwapPayload struct {
	PoolSwap        PoolSwapPayload
	IntermediatePools []uint32
}

// SetLoanTokenPayload is carried for completeness (spec.md §4.6 step 2
// lists it among decoded operation kinds); it has no dedicated projection
// of its own in spec.md §3/§4.7. Its only effect is registering the pair
// in the loan-token active-price tick's price-ticker list:
// applySetLoanToken writes a zero-value oracle-price-active row.
type SetLoanTokenPayload struct {
	Token    string
	Currency string
}

// EVMSystemPayload carries a deploy-DST20 / DFI-in / DFI-out /
// transfer-domain operation, per spec.md §4.7 "EVM system transactions".
type EVMSystemPayload struct {
	Kind    EVMSystemKind
	Address [20]byte
	Amount  int64
	// TokenID/Name/Symbol are used by DeployDST20 to seed the token's
	// storage-slot metadata (GLOSSARY "DST20").
	TokenID uint64
	Name    string
	Symbol  string
}

// LiquidationAuctionBidPayload carries one bid against a vault's
// liquidation auction, supplemented from original_source/ain-ocean's
// loan-auction model (SPEC_FULL.md §3.1 "VaultAuctionHistory").
type LiquidationAuctionBidPayload struct {
	VaultID      [32]byte
	AuctionIndex uint32
	Address      string
	TokenAmount  string
	TokenID      uint64
}

// EVMSystemKind distinguishes the five EVM system transaction shapes named
// in spec.md §4.7.
type EVMSystemKind int

const (
	EVMSystemDeployDST20 EVMSystemKind = iota
	EVMSystemTransferDomainIn
	EVMSystemTransferDomainOut
	EVMSystemDFIIn
	EVMSystemDFIOut
)

// Operation is the typed operation a transaction may carry, decoded
// upstream per spec.md §1. At most one payload field is non-nil; Kind says
// which.
type Operation struct {
	Kind                  OperationKind
	CreateMasternode      *CreateMasternodePayload
	UpdateMasternode      *UpdateMasternodePayload
	ResignMasternode      *ResignMasternodePayload
	AppointOracle         *AppointOraclePayload
	RemoveOracle          *RemoveOraclePayload
	UpdateOracle          *UpdateOraclePayload
	SetOracleData         *SetOracleDataPayload
	PoolSwap              *PoolSwapPayload
	CompositeSwap         *CompositeSwapPayload
	SetLoanToken          *SetLoanTokenPayload
	EVMSystem             *EVMSystemPayload
	LiquidationAuctionBid *LiquidationAuctionBidPayload
}

// TxInput is one already-decoded transaction, the indexer's per-tx input
// contract, per spec.md §3 "Transaction" and §4.6.
type TxInput struct {
	Txid     [32]byte
	Size     uint32
	VSize    uint32
	Weight   uint32
	Version  int32
	LockTime uint32
	Vins     []VinInput
	Vouts    []VoutInput
	Operation *Operation
}

// BlockInput is one already-decoded block, the indexer's top-level input
// contract, per spec.md §3 "Block" and §4.6.
type BlockInput struct {
	Hash       [32]byte
	ParentHash [32]byte
	Height     uint32
	MedianTime int64
	Time       int64
	Difficulty uint32
	Version    int32
	// Raw is the block's serialized bytes, stored verbatim under the
	// raw-block column per spec.md §4.6 step 1. Wire-level decoding of Raw
	// into Txs happens upstream (spec.md §1); the indexer never parses it.
	Raw []byte
	Txs []TxInput
	// MinterBlockCount is the minting masternode's running minted-block
	// counter at this height, supplemented from original_source/ain-ocean
	// (SPEC_FULL.md §3.1).
	MinterBlockCount uint32
}

// SwapResult is the side-channel (pool-id, to-amount) result the
// EVM/consensus layer populates for a pool-swap transaction, per spec.md
// §4.7 "PoolSwap": "Resolve (pool-id, to-amount) via a side-channel result
// table populated by the EVM/consensus layer for the tx."
type SwapResult struct {
	PoolID   uint32
	ToAmount int64
}
