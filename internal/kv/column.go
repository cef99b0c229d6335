package kv

import (
	"fmt"
	"iter"

	"github.com/defich/ocean/internal/log"
	"github.com/defich/ocean/internal/metrics"
)

// Pair is a decoded (key, value) item yielded while listing a Column.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Column is the static description of one logical table: a bucket name plus
// a key codec and value codec (spec.md §4.2). It is the single mechanism
// every projection uses — no duck-typed per-repository variants.
type Column[K, V any] struct {
	store      *Store
	name       string
	keyCodec   KeyCodec[K]
	valueCodec ValueCodec[V]
	// initialKey computes the "earliest logically greater" key for a
	// partial-key scan (spec.md §4.2 "InitialKey"), e.g. "all vouts of
	// txid T" starts at (T, 0). Optional; nil if the table is never
	// scanned from a partial key.
	initialKey func(partial K) K
}

// NewColumn constructs a Column bound to store, creating no new bucket
// (buckets are created once at Store.Open time from the full schema list).
func NewColumn[K, V any](store *Store, name string, kc KeyCodec[K], vc ValueCodec[V]) *Column[K, V] {
	return &Column[K, V]{store: store, name: name, keyCodec: kc, valueCodec: vc}
}

// WithInitialKey attaches an InitialKey function and returns the column for chaining.
func (c *Column[K, V]) WithInitialKey(fn func(partial K) K) *Column[K, V] {
	c.initialKey = fn
	return c
}

// Name returns the column's bucket name.
func (c *Column[K, V]) Name() string { return c.name }

// Get reads and decodes one row. Returns (zero, false, nil) if absent.
func (c *Column[K, V]) Get(key K) (V, bool, error) {
	var zero V
	raw, err := c.store.Get(c.name, c.keyCodec.EncodeKey(key))
	if err != nil {
		return zero, false, err
	}
	if raw == nil {
		return zero, false, nil
	}
	v, err := c.valueCodec.DecodeValue(raw)
	if err != nil {
		return zero, false, fmt.Errorf("column %s: %w", c.name, err)
	}
	metrics.ColumnOpsTotal.WithLabelValues(c.name, "get").Inc()
	return v, true, nil
}

// Put encodes and writes one row.
func (c *Column[K, V]) Put(key K, value V) error {
	raw, err := c.valueCodec.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("column %s: %w", c.name, err)
	}
	if err := c.store.Put(c.name, c.keyCodec.EncodeKey(key), raw); err != nil {
		return err
	}
	metrics.ColumnOpsTotal.WithLabelValues(c.name, "put").Inc()
	return nil
}

// Delete removes one row.
func (c *Column[K, V]) Delete(key K) error {
	if err := c.store.Delete(c.name, c.keyCodec.EncodeKey(key)); err != nil {
		return err
	}
	metrics.ColumnOpsTotal.WithLabelValues(c.name, "delete").Inc()
	return nil
}

// InitialKey computes the bound a partial-key scan should start from, per
// spec.md §4.2. Panics if no InitialKey function was attached — that is a
// programming error (schema misuse), not a runtime condition.
func (c *Column[K, V]) InitialKey(partial K) K {
	if c.initialKey == nil {
		panic(fmt.Sprintf("column %s: no InitialKey function attached", c.name))
	}
	return c.initialKey(partial)
}

// List returns a lazy sequence of decoded (key, value) pairs in the given
// direction, starting at from (inclusive) or the bucket's extreme if from
// is nil, per spec.md §4.2. Decode errors surface as individual err items
// and do not terminate the iterator.
func (c *Column[K, V]) List(from *K, dir Direction) iter.Seq2[Pair[K, V], error] {
	return func(yield func(Pair[K, V], error) bool) {
		var startKey []byte
		if from != nil {
			startKey = c.keyCodec.EncodeKey(*from)
		}

		logger := log.WithColumn(c.name)
		err := c.store.Iterate(c.name, startKey, dir, func(raw RawPair) bool {
			k, kerr := c.keyCodec.DecodeKey(raw.Key)
			if kerr != nil {
				logger.Debug().Err(kerr).Msg("key decode error during scan")
				var zero Pair[K, V]
				return yield(zero, fmt.Errorf("column %s: decode key: %w", c.name, kerr))
			}
			v, verr := c.valueCodec.DecodeValue(raw.Value)
			if verr != nil {
				logger.Debug().Err(verr).Msg("value decode error during scan")
				return yield(Pair[K, V]{Key: k}, fmt.Errorf("column %s: decode value: %w", c.name, verr))
			}
			return yield(Pair[K, V]{Key: k, Value: v}, nil)
		})
		if err != nil {
			var zero Pair[K, V]
			yield(zero, err)
		}
	}
}
