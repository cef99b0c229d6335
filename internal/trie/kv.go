/*
Package trie implements the EVM-facing state trie: a hash-addressed,
persistent Merkle-Patricia trie over its own KV column, per spec.md §4.4.

	┌─────────────────────── STATE TRIE ────────────────────────┐
	│                                                              │
	│   Mutable view (bound to a root being changed)               │
	│       Insert(key, value) ─┐                                  │
	│       Remove(key)        ─┼──► mutate nodes in memory,       │
	│       Root()             ─┘    flush to KV, return new root  │
	│                                                                │
	│   Immutable view (bound to a known root hash)                │
	│       Get(key) / Contains(key) / IsEmpty() / Root()           │
	│                                                                │
	│   underlying KV (kv.go): nodeHash -> serialized node          │
	│       Get / Contains / Insert / Emplace / Remove              │
	└──────────────────────────────────────────────────────────────┘
*/
package trie

import (
	"fmt"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/ocerr"
)

const nodesBucket = "state-trie-nodes"

// Buckets returns the bucket names this package owns, for inclusion in the
// full schema bucket list passed to kv.Open.
func Buckets() []string { return []string{nodesBucket} }

// KV is the minimal interface the trie needs from the underlying store,
// per spec.md §4.4: get/contains/insert/emplace/remove keyed by node hash.
// "prefix" is carried through verbatim from the spec even though this
// implementation's nodes are already uniquely addressed by hash — it lets a
// future sharded backend split nodes by prefix without changing this
// interface.
type KV interface {
	Get(nodeHash [32]byte, prefix []byte) ([]byte, bool, error)
	Contains(nodeHash [32]byte, prefix []byte) (bool, error)
	Insert(prefix []byte, value []byte) ([32]byte, error)
	Emplace(nodeHash [32]byte, prefix []byte, value []byte) error
	Remove(nodeHash [32]byte, prefix []byte) error
}

// storeKV implements KV over internal/kv.Store using synchronous writes, so
// that a node hash observed externally is retrievable after a crash (spec.md
// §4.4's crash-consistency requirement).
type storeKV struct {
	store *kv.Store
}

// NewKV wraps a kv.Store as the trie's node backend. The store must have
// been opened with NoSync: false (the default) for this guarantee to hold.
func NewKV(store *kv.Store) KV {
	return &storeKV{store: store}
}

func (s *storeKV) Get(nodeHash [32]byte, _ []byte) ([]byte, bool, error) {
	if nodeHash == EmptyNodeHash {
		return []byte{0}, true, nil
	}
	v, err := s.store.Get(nodesBucket, nodeHash[:])
	if err != nil {
		return nil, false, fmt.Errorf("%w: trie node get: %v", ocerr.ErrStorage, err)
	}
	return v, v != nil, nil
}

func (s *storeKV) Contains(nodeHash [32]byte, prefix []byte) (bool, error) {
	_, ok, err := s.Get(nodeHash, prefix)
	return ok, err
}

func (s *storeKV) Insert(_ []byte, value []byte) ([32]byte, error) {
	h := HashNode(value)
	if err := s.store.Put(nodesBucket, h[:], value); err != nil {
		return [32]byte{}, fmt.Errorf("%w: trie node insert: %v", ocerr.ErrStorage, err)
	}
	if err := s.store.Flush(); err != nil {
		return [32]byte{}, fmt.Errorf("%w: trie node flush: %v", ocerr.ErrStorage, err)
	}
	return h, nil
}

func (s *storeKV) Emplace(nodeHash [32]byte, _ []byte, value []byte) error {
	if err := s.store.Put(nodesBucket, nodeHash[:], value); err != nil {
		return fmt.Errorf("%w: trie node emplace: %v", ocerr.ErrStorage, err)
	}
	return s.store.Flush()
}

func (s *storeKV) Remove(nodeHash [32]byte, _ []byte) error {
	if nodeHash == EmptyNodeHash {
		return nil
	}
	if err := s.store.Delete(nodesBucket, nodeHash[:]); err != nil {
		return fmt.Errorf("%w: trie node remove: %v", ocerr.ErrStorage, err)
	}
	return s.store.Flush()
}
