/*
Package kv provides the ordered, column-family-shaped key-value backend that
every Ocean projection is built on, plus the typed Column abstraction layered
on top of it.

	┌────────────────────────── KV STORE ───────────────────────────┐
	│                                                                  │
	│   ┌────────────────────────────────────────────────┐           │
	│   │                  bbolt.DB                        │           │
	│   │   single file, B+tree, MVCC, fsync-backed        │           │
	│   └──────────────────────┬─────────────────────────┘           │
	│                          │                                       │
	│     one bucket per logical column ("column family"):            │
	│   ┌──────────┬──────────┬───────────┬──────────┬────────────┐  │
	│   │ block    │ block-by │ tx        │ tx-vin   │ ...        │  │
	│   │          │ -height  │           │          │            │  │
	│   └──────────┴──────────┴───────────┴──────────┴────────────┘  │
	│                          │                                       │
	│   ┌──────────────────────▼─────────────────────────┐            │
	│   │              Column[K, V] (column.go)            │            │
	│   │   KeyCodec[K] + ValueCodec[V], List(from, dir)   │            │
	│   └───────────────────────────────────────────────┘            │
	└──────────────────────────────────────────────────────────────┘

bbolt has no native bloom filter / shared block cache / background
compaction knobs — those RocksDB-specific tuning levers named in spec.md
§4.1 have no bbolt equivalent. The read-amplification problem they solve is
instead addressed by the internal/cache LRU layer sitting in front of this
store; see SPEC_FULL.md §4.1 for the explicit substitution note.
*/
package kv

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Options configures the underlying bbolt database.
type Options struct {
	// NoSync disables bbolt's fsync-per-commit. Never set true for columns
	// the state trie writes through (spec.md §4.4 requires synchronous
	// writes); safe for columns that can be rebuilt from the upstream node.
	NoSync bool
	// InitialMmapSize pre-sizes the memory map to avoid remaps under heavy
	// initial sync, mirroring RocksDB's "tuned background compaction"
	// intent with the lever bbolt actually exposes.
	InitialMmapSize int
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// DefaultOptions returns sane defaults for a long-running indexer process.
func DefaultOptions() Options {
	return Options{
		NoSync:          false,
		InitialMmapSize: 1 << 30, // 1GiB
		Timeout:         5 * time.Second,
	}
}

// Store wraps a single bbolt database holding every column's bucket.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (creating if necessary) the store at path and ensures every
// bucket named in buckets exists, mirroring the teacher's
// CreateBucketIfNotExists-at-open-time pattern.
func Open(path string, opts Options, buckets []string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:         opts.Timeout,
		NoSync:          opts.NoSync,
		InitialMmapSize: opts.InitialMmapSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open kv store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Flush forces bbolt to persist its freelist and any buffered state. bbolt
// transactions already fsync on commit, so this mainly exists to give
// migrations (spec.md §4.3) and the trie (spec.md §4.4) an explicit,
// named "flush" call site.
func (s *Store) Flush() error {
	return s.db.Sync()
}

// Get reads a raw value from a named bucket. A missing key returns (nil, nil).
func (s *Store) Get(bucket string, key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("%w: %s", errBucketMissing, bucket)
		}
		v := b.Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// Put writes a raw key/value pair into a named bucket.
func (s *Store) Put(bucket string, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("%w: %s", errBucketMissing, bucket)
		}
		return b.Put(key, value)
	})
}

// Delete removes a key from a named bucket. Deleting an absent key is a no-op.
func (s *Store) Delete(bucket string, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("%w: %s", errBucketMissing, bucket)
		}
		return b.Delete(key)
	})
}

// Update runs fn inside a single read-write transaction, so several bucket
// writes commit as one atomic unit. Its only caller is a migration step; the
// indexer writes through Column, one transaction per Put or Delete.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// Direction selects ascending or descending iteration order.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// RawPair is a single raw byte-pair yielded while iterating a bucket. The
// store performs no typing (spec.md §4.1); typed decoding happens in Column.
type RawPair struct {
	Key   []byte
	Value []byte
}

// Iterate walks a bucket in the given direction starting at from (or the
// bucket's extreme if from is nil), calling yield for each raw pair. yield
// returning false stops iteration early.
func (s *Store) Iterate(bucket string, from []byte, dir Direction, yield func(RawPair) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("%w: %s", errBucketMissing, bucket)
		}
		c := b.Cursor()

		var k, v []byte
		switch dir {
		case Forward:
			if from == nil {
				k, v = c.First()
			} else {
				k, v = c.Seek(from)
			}
			for ; k != nil; k, v = c.Next() {
				if !yield(RawPair{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)}) {
					return nil
				}
			}
		case Reverse:
			if from == nil {
				k, v = c.Last()
			} else {
				// Seek lands on the first key >= from; for reverse iteration we
				// want the first key <= from, so step back once if we overshot.
				k, v = c.Seek(from)
				if k == nil {
					k, v = c.Last()
				} else if string(k) != string(from) {
					k, v = c.Prev()
				}
			}
			for ; k != nil; k, v = c.Prev() {
				if !yield(RawPair{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)}) {
					return nil
				}
			}
		}
		return nil
	})
}
