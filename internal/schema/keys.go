/*
Package schema wires the concrete Column instances for every projection
named in spec.md §2 item 6, using the generic internal/kv.Column container
per the DESIGN NOTES recommendation in spec.md §9 ("one generic container
parameterized over (key-type, value-type, column-name)").

Key layouts follow spec.md §4.2: big-endian packed tuples wherever a range
scan must respect semantic order, hashes appended as fixed-width arrays,
token/currency identifiers packed into a fixed width so they sort and
compare like the rest of the tuple.
*/
package schema

import (
	"bytes"

	"github.com/defich/ocean/internal/kv"
)

// tokenFieldWidth bounds a token symbol or currency code inside a packed
// key. Any of DeFiChain's real token symbols and ISO currency codes fit
// comfortably within this.
const tokenFieldWidth = 16

// hashKeyCodec encodes a 32-byte hash verbatim as the whole key.
type hashKeyCodec struct{}

func (hashKeyCodec) EncodeKey(h [32]byte) []byte { return h[:] }
func (hashKeyCodec) DecodeKey(b []byte) ([32]byte, error) {
	var h [32]byte
	raw, _, err := kv.ReadHash(b, 32)
	if err != nil {
		return h, err
	}
	copy(h[:], raw)
	return h, nil
}

// uint32KeyCodec encodes a uint32 big-endian.
type uint32KeyCodec struct{}

func (uint32KeyCodec) EncodeKey(v uint32) []byte {
	var buf bytes.Buffer
	kv.PutUint32(&buf, v)
	return buf.Bytes()
}
func (uint32KeyCodec) DecodeKey(b []byte) (uint32, error) {
	v, _, err := kv.ReadUint32(b)
	return v, err
}

// HeightIndexKey is (height, index) → id, used by masternode-by-height and
// similar per-height ordinal secondaries (spec.md §4.7 "CreateMasternode").
type HeightIndexKey struct {
	Height uint32
	Index  uint32
}

type heightIndexKeyCodec struct{}

func (heightIndexKeyCodec) EncodeKey(k HeightIndexKey) []byte {
	var buf bytes.Buffer
	kv.PutUint32(&buf, k.Height)
	kv.PutUint32(&buf, k.Index)
	return buf.Bytes()
}

func (heightIndexKeyCodec) DecodeKey(b []byte) (HeightIndexKey, error) {
	height, rest, err := kv.ReadUint32(b)
	if err != nil {
		return HeightIndexKey{}, err
	}
	index, _, err := kv.ReadUint32(rest)
	if err != nil {
		return HeightIndexKey{}, err
	}
	return HeightIndexKey{Height: height, Index: index}, nil
}

// TxVinKey is (txid, prev-txid, prev-vout), per spec.md §3 "Transaction".
type TxVinKey struct {
	Txid     [32]byte
	PrevTxid [32]byte
	PrevVout uint32
}

type txVinKeyCodec struct{}

func (txVinKeyCodec) EncodeKey(k TxVinKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.Txid[:])
	kv.PutHash(&buf, k.PrevTxid[:])
	kv.PutUint32(&buf, k.PrevVout)
	return buf.Bytes()
}

func (txVinKeyCodec) DecodeKey(b []byte) (TxVinKey, error) {
	txid, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return TxVinKey{}, err
	}
	prevTxid, rest, err := kv.ReadHash(rest, 32)
	if err != nil {
		return TxVinKey{}, err
	}
	prevVout, _, err := kv.ReadUint32(rest)
	if err != nil {
		return TxVinKey{}, err
	}
	var k TxVinKey
	copy(k.Txid[:], txid)
	copy(k.PrevTxid[:], prevTxid)
	k.PrevVout = prevVout
	return k, nil
}

// TxVoutKey is (txid, vout-index), per spec.md §3 "Transaction".
type TxVoutKey struct {
	Txid  [32]byte
	Index uint32
}

type txVoutKeyCodec struct{}

func (txVoutKeyCodec) EncodeKey(k TxVoutKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.Txid[:])
	kv.PutUint32(&buf, k.Index)
	return buf.Bytes()
}

func (txVoutKeyCodec) DecodeKey(b []byte) (TxVoutKey, error) {
	txid, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return TxVoutKey{}, err
	}
	idx, _, err := kv.ReadUint32(rest)
	if err != nil {
		return TxVoutKey{}, err
	}
	var k TxVoutKey
	copy(k.Txid[:], txid)
	k.Index = idx
	return k, nil
}

// BlockPositionKey is (block-hash, position) → txid, the transaction's
// secondary index per spec.md §3.
type BlockPositionKey struct {
	BlockHash [32]byte
	Position  uint32
}

type blockPositionKeyCodec struct{}

func (blockPositionKeyCodec) EncodeKey(k BlockPositionKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.BlockHash[:])
	kv.PutUint32(&buf, k.Position)
	return buf.Bytes()
}

func (blockPositionKeyCodec) DecodeKey(b []byte) (BlockPositionKey, error) {
	bh, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return BlockPositionKey{}, err
	}
	pos, _, err := kv.ReadUint32(rest)
	if err != nil {
		return BlockPositionKey{}, err
	}
	var k BlockPositionKey
	copy(k.BlockHash[:], bh)
	k.Position = pos
	return k, nil
}

// ScriptActivityKey is (HID, height, txid, index, direction), per spec.md
// §3 "Script-Activity" — range-scanned by HID.
type ScriptActivityKey struct {
	HID       [32]byte
	Height    uint32
	Txid      [32]byte
	Index     uint32
	Direction uint8
}

type scriptActivityKeyCodec struct{}

func (scriptActivityKeyCodec) EncodeKey(k ScriptActivityKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.HID[:])
	kv.PutUint32(&buf, k.Height)
	kv.PutHash(&buf, k.Txid[:])
	kv.PutUint32(&buf, k.Index)
	buf.WriteByte(k.Direction)
	return buf.Bytes()
}

func (scriptActivityKeyCodec) DecodeKey(b []byte) (ScriptActivityKey, error) {
	hid, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return ScriptActivityKey{}, err
	}
	height, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return ScriptActivityKey{}, err
	}
	txid, rest, err := kv.ReadHash(rest, 32)
	if err != nil {
		return ScriptActivityKey{}, err
	}
	idx, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return ScriptActivityKey{}, err
	}
	if len(rest) < 1 {
		return ScriptActivityKey{}, err
	}
	var k ScriptActivityKey
	copy(k.HID[:], hid)
	k.Height = height
	copy(k.Txid[:], txid)
	k.Index = idx
	k.Direction = rest[0]
	return k, nil
}

// ScriptHeightTxVoutKey is (HID, height, txid, vout-index), shared shape for
// script-unspent, per spec.md §3 "Script-Unspent".
type ScriptHeightTxVoutKey struct {
	HID       [32]byte
	Height    uint32
	Txid      [32]byte
	VoutIndex uint32
}

type scriptHeightTxVoutKeyCodec struct{}

func (scriptHeightTxVoutKeyCodec) EncodeKey(k ScriptHeightTxVoutKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.HID[:])
	kv.PutUint32(&buf, k.Height)
	kv.PutHash(&buf, k.Txid[:])
	kv.PutUint32(&buf, k.VoutIndex)
	return buf.Bytes()
}

func (scriptHeightTxVoutKeyCodec) DecodeKey(b []byte) (ScriptHeightTxVoutKey, error) {
	hid, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return ScriptHeightTxVoutKey{}, err
	}
	height, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return ScriptHeightTxVoutKey{}, err
	}
	txid, rest, err := kv.ReadHash(rest, 32)
	if err != nil {
		return ScriptHeightTxVoutKey{}, err
	}
	voutIdx, _, err := kv.ReadUint32(rest)
	if err != nil {
		return ScriptHeightTxVoutKey{}, err
	}
	var k ScriptHeightTxVoutKey
	copy(k.HID[:], hid)
	k.Height = height
	copy(k.Txid[:], txid)
	k.VoutIndex = voutIdx
	return k, nil
}

// ScriptHeightKey is (HID, height), the script-aggregation primary key, per
// spec.md §3 "Script-Aggregation".
type ScriptHeightKey struct {
	HID    [32]byte
	Height uint32
}

type scriptHeightKeyCodec struct{}

func (scriptHeightKeyCodec) EncodeKey(k ScriptHeightKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.HID[:])
	kv.PutUint32(&buf, k.Height)
	return buf.Bytes()
}

func (scriptHeightKeyCodec) DecodeKey(b []byte) (ScriptHeightKey, error) {
	hid, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return ScriptHeightKey{}, err
	}
	height, _, err := kv.ReadUint32(rest)
	if err != nil {
		return ScriptHeightKey{}, err
	}
	var k ScriptHeightKey
	copy(k.HID[:], hid)
	k.Height = height
	return k, nil
}

// TokenCurrencyKey is a fixed-width-packed (token, currency) pair, the key
// of the oracle-price-active (price-ticker) column.
type TokenCurrencyKey struct {
	Token    string
	Currency string
}

type tokenCurrencyKeyCodec struct{}

func (tokenCurrencyKeyCodec) EncodeKey(k TokenCurrencyKey) []byte {
	var buf bytes.Buffer
	kv.PutFixedString(&buf, k.Token, tokenFieldWidth)
	kv.PutFixedString(&buf, k.Currency, tokenFieldWidth)
	return buf.Bytes()
}

func (tokenCurrencyKeyCodec) DecodeKey(b []byte) (TokenCurrencyKey, error) {
	token, rest, err := kv.ReadFixedString(b, tokenFieldWidth)
	if err != nil {
		return TokenCurrencyKey{}, err
	}
	currency, _, err := kv.ReadFixedString(rest, tokenFieldWidth)
	if err != nil {
		return TokenCurrencyKey{}, err
	}
	return TokenCurrencyKey{Token: token, Currency: currency}, nil
}

// PriceFeedKey is (token, currency, oracle-id, txid), per spec.md §3
// "Oracle".
type PriceFeedKey struct {
	Token    string
	Currency string
	OracleID [32]byte
	Txid     [32]byte
}

type priceFeedKeyCodec struct{}

func (priceFeedKeyCodec) EncodeKey(k PriceFeedKey) []byte {
	var buf bytes.Buffer
	kv.PutFixedString(&buf, k.Token, tokenFieldWidth)
	kv.PutFixedString(&buf, k.Currency, tokenFieldWidth)
	kv.PutHash(&buf, k.OracleID[:])
	kv.PutHash(&buf, k.Txid[:])
	return buf.Bytes()
}

func (priceFeedKeyCodec) DecodeKey(b []byte) (PriceFeedKey, error) {
	token, rest, err := kv.ReadFixedString(b, tokenFieldWidth)
	if err != nil {
		return PriceFeedKey{}, err
	}
	currency, rest, err := kv.ReadFixedString(rest, tokenFieldWidth)
	if err != nil {
		return PriceFeedKey{}, err
	}
	oracleID, rest, err := kv.ReadHash(rest, 32)
	if err != nil {
		return PriceFeedKey{}, err
	}
	txid, _, err := kv.ReadHash(rest, 32)
	if err != nil {
		return PriceFeedKey{}, err
	}
	var k PriceFeedKey
	k.Token, k.Currency = token, currency
	copy(k.OracleID[:], oracleID)
	copy(k.Txid[:], txid)
	return k, nil
}

// OracleTokenCurrencyKey is (token, currency, oracle-id), the secondary used
// to list the oracles declaring a given pair (spec.md §4.7's "list the
// oracles that declare that (token, currency)").
type OracleTokenCurrencyKey struct {
	Token    string
	Currency string
	OracleID [32]byte
}

type oracleTokenCurrencyKeyCodec struct{}

func (oracleTokenCurrencyKeyCodec) EncodeKey(k OracleTokenCurrencyKey) []byte {
	var buf bytes.Buffer
	kv.PutFixedString(&buf, k.Token, tokenFieldWidth)
	kv.PutFixedString(&buf, k.Currency, tokenFieldWidth)
	kv.PutHash(&buf, k.OracleID[:])
	return buf.Bytes()
}

func (oracleTokenCurrencyKeyCodec) DecodeKey(b []byte) (OracleTokenCurrencyKey, error) {
	token, rest, err := kv.ReadFixedString(b, tokenFieldWidth)
	if err != nil {
		return OracleTokenCurrencyKey{}, err
	}
	currency, rest, err := kv.ReadFixedString(rest, tokenFieldWidth)
	if err != nil {
		return OracleTokenCurrencyKey{}, err
	}
	oracleID, _, err := kv.ReadHash(rest, 32)
	if err != nil {
		return OracleTokenCurrencyKey{}, err
	}
	var k OracleTokenCurrencyKey
	k.Token, k.Currency = token, currency
	copy(k.OracleID[:], oracleID)
	return k, nil
}

// PriceHeightKey is (token, currency, height), the price-aggregated primary
// key, per spec.md §4.7.
type PriceHeightKey struct {
	Token    string
	Currency string
	Height   uint32
}

type priceHeightKeyCodec struct{}

func (priceHeightKeyCodec) EncodeKey(k PriceHeightKey) []byte {
	var buf bytes.Buffer
	kv.PutFixedString(&buf, k.Token, tokenFieldWidth)
	kv.PutFixedString(&buf, k.Currency, tokenFieldWidth)
	kv.PutUint32(&buf, k.Height)
	return buf.Bytes()
}

func (priceHeightKeyCodec) DecodeKey(b []byte) (PriceHeightKey, error) {
	token, rest, err := kv.ReadFixedString(b, tokenFieldWidth)
	if err != nil {
		return PriceHeightKey{}, err
	}
	currency, rest, err := kv.ReadFixedString(rest, tokenFieldWidth)
	if err != nil {
		return PriceHeightKey{}, err
	}
	height, _, err := kv.ReadUint32(rest)
	if err != nil {
		return PriceHeightKey{}, err
	}
	return PriceHeightKey{Token: token, Currency: currency, Height: height}, nil
}

// PriceIntervalKey is (token, currency, interval, start), the
// price-aggregated-interval primary key.
type PriceIntervalKey struct {
	Token    string
	Currency string
	Interval uint32
	Start    int64
}

type priceIntervalKeyCodec struct{}

func (priceIntervalKeyCodec) EncodeKey(k PriceIntervalKey) []byte {
	var buf bytes.Buffer
	kv.PutFixedString(&buf, k.Token, tokenFieldWidth)
	kv.PutFixedString(&buf, k.Currency, tokenFieldWidth)
	kv.PutUint32(&buf, k.Interval)
	kv.PutInt64(&buf, k.Start)
	return buf.Bytes()
}

func (priceIntervalKeyCodec) DecodeKey(b []byte) (PriceIntervalKey, error) {
	token, rest, err := kv.ReadFixedString(b, tokenFieldWidth)
	if err != nil {
		return PriceIntervalKey{}, err
	}
	currency, rest, err := kv.ReadFixedString(rest, tokenFieldWidth)
	if err != nil {
		return PriceIntervalKey{}, err
	}
	interval, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return PriceIntervalKey{}, err
	}
	start, _, err := kv.ReadInt64(rest)
	if err != nil {
		return PriceIntervalKey{}, err
	}
	return PriceIntervalKey{Token: token, Currency: currency, Interval: interval, Start: start}, nil
}

// PoolSwapKey is (pool-id, height, tx-index), per spec.md §3 "Pool-Swap".
type PoolSwapKey struct {
	PoolID  uint32
	Height  uint32
	TxIndex uint32
}

type poolSwapKeyCodec struct{}

func (poolSwapKeyCodec) EncodeKey(k PoolSwapKey) []byte {
	var buf bytes.Buffer
	kv.PutUint32(&buf, k.PoolID)
	kv.PutUint32(&buf, k.Height)
	kv.PutUint32(&buf, k.TxIndex)
	return buf.Bytes()
}

func (poolSwapKeyCodec) DecodeKey(b []byte) (PoolSwapKey, error) {
	poolID, rest, err := kv.ReadUint32(b)
	if err != nil {
		return PoolSwapKey{}, err
	}
	height, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return PoolSwapKey{}, err
	}
	txIndex, _, err := kv.ReadUint32(rest)
	if err != nil {
		return PoolSwapKey{}, err
	}
	return PoolSwapKey{PoolID: poolID, Height: height, TxIndex: txIndex}, nil
}

// PoolSwapAggKey is (pool-id, interval, bucket-start), per spec.md §4.9.
type PoolSwapAggKey struct {
	PoolID      uint32
	Interval    uint32
	BucketStart int64
}

type poolSwapAggKeyCodec struct{}

func (poolSwapAggKeyCodec) EncodeKey(k PoolSwapAggKey) []byte {
	var buf bytes.Buffer
	kv.PutUint32(&buf, k.PoolID)
	kv.PutUint32(&buf, k.Interval)
	kv.PutInt64(&buf, k.BucketStart)
	return buf.Bytes()
}

func (poolSwapAggKeyCodec) DecodeKey(b []byte) (PoolSwapAggKey, error) {
	poolID, rest, err := kv.ReadUint32(b)
	if err != nil {
		return PoolSwapAggKey{}, err
	}
	interval, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return PoolSwapAggKey{}, err
	}
	start, _, err := kv.ReadInt64(rest)
	if err != nil {
		return PoolSwapAggKey{}, err
	}
	return PoolSwapAggKey{PoolID: poolID, Interval: interval, BucketStart: start}, nil
}

// PoolSwapAggSecondaryKey is (pool-id, interval, hash), the opaque-id
// secondary named in spec.md §4.9.
type PoolSwapAggSecondaryKey struct {
	PoolID   uint32
	Interval uint32
	Hash     [32]byte
}

type poolSwapAggSecondaryKeyCodec struct{}

func (poolSwapAggSecondaryKeyCodec) EncodeKey(k PoolSwapAggSecondaryKey) []byte {
	var buf bytes.Buffer
	kv.PutUint32(&buf, k.PoolID)
	kv.PutUint32(&buf, k.Interval)
	kv.PutHash(&buf, k.Hash[:])
	return buf.Bytes()
}

func (poolSwapAggSecondaryKeyCodec) DecodeKey(b []byte) (PoolSwapAggSecondaryKey, error) {
	poolID, rest, err := kv.ReadUint32(b)
	if err != nil {
		return PoolSwapAggSecondaryKey{}, err
	}
	interval, rest, err := kv.ReadUint32(rest)
	if err != nil {
		return PoolSwapAggSecondaryKey{}, err
	}
	h, _, err := kv.ReadHash(rest, 32)
	if err != nil {
		return PoolSwapAggSecondaryKey{}, err
	}
	var k PoolSwapAggSecondaryKey
	k.PoolID, k.Interval = poolID, interval
	copy(k.Hash[:], h)
	return k, nil
}

// VaultAuctionKey is (vault-id, auction-index), per SPEC_FULL.md §3.1.
type VaultAuctionKey struct {
	VaultID      [32]byte
	AuctionIndex uint32
}

type vaultAuctionKeyCodec struct{}

func (vaultAuctionKeyCodec) EncodeKey(k VaultAuctionKey) []byte {
	var buf bytes.Buffer
	kv.PutHash(&buf, k.VaultID[:])
	kv.PutUint32(&buf, k.AuctionIndex)
	return buf.Bytes()
}

func (vaultAuctionKeyCodec) DecodeKey(b []byte) (VaultAuctionKey, error) {
	vaultID, rest, err := kv.ReadHash(b, 32)
	if err != nil {
		return VaultAuctionKey{}, err
	}
	idx, _, err := kv.ReadUint32(rest)
	if err != nil {
		return VaultAuctionKey{}, err
	}
	var k VaultAuctionKey
	copy(k.VaultID[:], vaultID)
	k.AuctionIndex = idx
	return k, nil
}
