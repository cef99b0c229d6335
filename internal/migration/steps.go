package migration

import (
	"bytes"
	"encoding/gob"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/defich/ocean/internal/kv"
)

// Steps is the ordered migration list applied by Run. Grounded on the
// teacher's standalone warren-migrate tool (cmd/warren-migrate/main.go):
// that tool renamed a "tasks" bucket to "containers", rewriting every row;
// the migrations below follow the same "read old shape, write new shape"
// idiom but run in-process at daemon startup instead of as a separate CLI,
// since Ocean's schema changes are additive fields rather than a bucket
// rename.
var Steps = []Migration{
	{TargetVersion: 1, Name: "baseline", Apply: applyBaseline},
	{TargetVersion: 2, Name: "oracle-price-feed-state", Apply: applyOraclePriceFeedState},
	{TargetVersion: 3, Name: "vault-auction-history-bucket", Apply: applyVaultAuctionHistoryBucket},
}

// applyBaseline exists only to anchor version 1; the buckets themselves are
// created by kv.Open from the full schema list regardless of schema
// version, so there is nothing else to do here. Idempotent trivially.
func applyBaseline(*kv.Store) error {
	return nil
}

// oraclePriceFeedV1 is the pre-migration, State-less shape of a price feed
// row (gob-encoded). Kept private to this file: it exists only to decode
// legacy rows during the upgrade.
type oraclePriceFeedV1 struct {
	Token      string
	Currency   string
	OracleID   string
	TxID       string
	Amount     string
	BlockTime  int64
	BlockHash  []byte
}

// applyOraclePriceFeedState adds the PriceFeed.State field supplemented
// into the schema in SPEC_FULL.md §3.1: every existing row is decoded with
// the old shape and re-encoded with State defaulting to "Live" (the
// indexer's forward path also writes every feed as "Live"; nothing marks a
// feed "Expired"). Idempotent: a row already in the new shape decodes successfully
// with the old shape's field subset (gob ignores extra trailing fields
// when decoding into a struct with fewer fields) and is rewritten to the
// same bytes, so running twice produces identical output.
func applyOraclePriceFeedState(store *kv.Store) error {
	const bucket = "oracle-price-feed"

	type rewrite struct {
		key   []byte
		value []byte
	}
	var rewrites []rewrite

	err := store.Iterate(bucket, nil, kv.Forward, func(p kv.RawPair) bool {
		var old oraclePriceFeedV1
		if err := gob.NewDecoder(bytes.NewReader(p.Value)).Decode(&old); err != nil {
			// Already-migrated or malformed row: leave untouched.
			return true
		}

		var buf bytes.Buffer
		newRow := struct {
			Token     string
			Currency  string
			OracleID  string
			TxID      string
			Amount    string
			BlockTime int64
			BlockHash []byte
			State     string
		}{old.Token, old.Currency, old.OracleID, old.TxID, old.Amount, old.BlockTime, old.BlockHash, "Live"}
		if err := gob.NewEncoder(&buf).Encode(newRow); err != nil {
			return true
		}
		rewrites = append(rewrites, rewrite{key: p.Key, value: buf.Bytes()})
		return true
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", bucket, err)
	}

	for _, r := range rewrites {
		if err := store.Put(bucket, r.key, r.value); err != nil {
			return fmt.Errorf("rewrite %s row: %w", bucket, err)
		}
	}
	return nil
}

// applyVaultAuctionHistoryBucket creates the vault-auction-history bucket
// for installs that predate its introduction. kv.Open already creates every
// bucket named in the current schema, which makes this step a no-op on any
// store opened with the current binary — it exists to document the schema
// addition and to remain idempotent (CreateBucketIfNotExists never errors
// on an existing bucket) for stores opened by an older binary build first.
func applyVaultAuctionHistoryBucket(store *kv.Store) error {
	return store.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("vault-auction-history"))
		return err
	})
}
