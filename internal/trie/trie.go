package trie

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/defich/ocean/internal/ocerr"
	"golang.org/x/crypto/sha3"
)

// EmptyNodeHash is the fixed constant for the empty node, treated as
// present with value []byte{0}, per spec.md §4.4.
var EmptyNodeHash = [32]byte{}

// GenesisStateRoot is the well-known constant the trie starts from when no
// prior root exists, per spec.md §4.4. It is distinct from EmptyNodeHash so
// that "no chain indexed yet" and "the empty trie" remain distinguishable
// states for callers that branch on it.
var GenesisStateRoot = func() [32]byte {
	return HashNode([]byte("ocean-genesis-state-root"))
}()

// HashNode returns the Keccak-256 hash of a serialized node, matching the
// hash function the embedded EVM uses elsewhere (DST20 storage-slot
// addressing, per GLOSSARY).
func HashNode(b []byte) [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	h.Sum(out[:0])
	return out
}

// node is the trie's single node shape: a sorted list of children keyed by
// the next path byte, plus an optional leaf value. This is a simplified,
// fully persistent radix trie rather than a byte-for-byte Ethereum MPT
// encoding (RLP + hex-prefix nibbles) — out of scope per spec.md §1, which
// excludes "the EVM execution engine itself"; what matters here is the
// storage contract (hash-addressed, content-addressed, crash-consistent),
// which this preserves exactly.
type node struct {
	Children map[byte][32]byte
	HasValue bool
	Value    []byte
}

func encodeNode(n node) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(n)
	return buf.Bytes()
}

func decodeNode(b []byte) (node, error) {
	var n node
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&n); err != nil {
		return node{}, fmt.Errorf("%w: trie node: %v", ocerr.ErrDeserialize, err)
	}
	return n, nil
}

// Immutable is a read-only view bound to a known root hash, per spec.md §4.4.
type Immutable struct {
	kv   KV
	root [32]byte
}

// NewImmutable binds a read-only view to root. Cheap: it clones nothing, it
// only remembers the hash.
func NewImmutable(kvStore KV, root [32]byte) *Immutable {
	return &Immutable{kv: kvStore, root: root}
}

// Root returns the bound root hash.
func (t *Immutable) Root() [32]byte { return t.root }

// IsEmpty reports whether the bound root is the empty node.
func (t *Immutable) IsEmpty() bool { return t.root == EmptyNodeHash }

// Get looks up key, descending the trie one path byte at a time.
func (t *Immutable) Get(key []byte) ([]byte, bool, error) {
	return get(t.kv, t.root, key)
}

// Contains reports whether key is present.
func (t *Immutable) Contains(key []byte) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

func get(kvStore KV, root [32]byte, key []byte) ([]byte, bool, error) {
	raw, ok, err := kvStore.Get(root, key)
	if err != nil {
		return nil, false, err
	}
	if root == EmptyNodeHash {
		return raw, ok, nil
	}
	if !ok {
		return nil, false, nil
	}
	n, err := decodeNode(raw)
	if err != nil {
		return nil, false, err
	}

	if len(key) == 0 {
		if !n.HasValue {
			return nil, false, nil
		}
		return n.Value, true, nil
	}

	child, ok := n.Children[key[0]]
	if !ok {
		return nil, false, nil
	}
	return get(kvStore, child, key[1:])
}

// Mutable is a view bound to a root that will be mutated in place, per
// spec.md §4.4.
type Mutable struct {
	kv   KV
	root [32]byte
}

// NewMutable binds a mutable view to root (GenesisStateRoot if this is a
// fresh trie, per spec.md §4.4).
func NewMutable(kvStore KV, root [32]byte) *Mutable {
	return &Mutable{kv: kvStore, root: root}
}

// Root returns the current root hash after any prior Insert/Remove calls
// have flushed.
func (t *Mutable) Root() [32]byte { return t.root }

// IsEmpty reports whether the current root is the empty node.
func (t *Mutable) IsEmpty() bool { return t.root == EmptyNodeHash }

// Get looks up key against the current root.
func (t *Mutable) Get(key []byte) ([]byte, bool, error) {
	return get(t.kv, t.root, key)
}

// Contains reports whether key is present against the current root.
func (t *Mutable) Contains(key []byte) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

// Insert writes key -> value, rehashing every node on the path from the
// leaf back to the root and flushing each new node (spec.md §4.4: "root()
// returning the updated root after flushing"). A KV error mid-write
// surfaces as an error rather than panicking, per the Open Question
// decision in DESIGN.md.
func (t *Mutable) Insert(key, value []byte) error {
	newRoot, err := insert(t.kv, t.root, key, value)
	if err != nil {
		return fmt.Errorf("trie insert: %w", err)
	}
	t.root = newRoot
	return nil
}

func insert(kvStore KV, root [32]byte, key, value []byte) ([32]byte, error) {
	var n node
	if root != EmptyNodeHash {
		raw, ok, err := kvStore.Get(root, nil)
		if err != nil {
			return [32]byte{}, err
		}
		if ok {
			n, err = decodeNode(raw)
			if err != nil {
				return [32]byte{}, err
			}
		}
	}
	if n.Children == nil {
		n.Children = make(map[byte][32]byte)
	}

	if len(key) == 0 {
		n.HasValue = true
		n.Value = append([]byte(nil), value...)
	} else {
		childRoot := n.Children[key[0]]
		newChild, err := insert(kvStore, childRoot, key[1:], value)
		if err != nil {
			return [32]byte{}, err
		}
		n.Children[key[0]] = newChild
	}

	encoded := encodeNode(n)
	newHash, err := kvStore.Insert(key, encoded)
	if err != nil {
		return [32]byte{}, err
	}
	return newHash, nil
}

// Remove deletes key if present; absent keys are a no-op, mirroring map
// delete semantics used throughout the projections.
func (t *Mutable) Remove(key []byte) error {
	newRoot, changed, err := remove(t.kv, t.root, key)
	if err != nil {
		return fmt.Errorf("trie remove: %w", err)
	}
	if changed {
		t.root = newRoot
	}
	return nil
}

func remove(kvStore KV, root [32]byte, key []byte) ([32]byte, bool, error) {
	if root == EmptyNodeHash {
		return root, false, nil
	}
	raw, ok, err := kvStore.Get(root, nil)
	if err != nil {
		return [32]byte{}, false, err
	}
	if !ok {
		return root, false, nil
	}
	n, err := decodeNode(raw)
	if err != nil {
		return [32]byte{}, false, err
	}

	if len(key) == 0 {
		if !n.HasValue {
			return root, false, nil
		}
		n.HasValue = false
		n.Value = nil
	} else {
		childRoot, ok := n.Children[key[0]]
		if !ok {
			return root, false, nil
		}
		newChild, changed, err := remove(kvStore, childRoot, key[1:])
		if err != nil {
			return [32]byte{}, false, err
		}
		if !changed {
			return root, false, nil
		}
		if newChild == EmptyNodeHash {
			delete(n.Children, key[0])
		} else {
			n.Children[key[0]] = newChild
		}
	}

	if len(n.Children) == 0 && !n.HasValue {
		if err := kvStore.Remove(root, nil); err != nil {
			return [32]byte{}, false, err
		}
		return EmptyNodeHash, true, nil
	}

	encoded := encodeNode(n)
	newHash := HashNode(encoded)
	if err := kvStore.Emplace(newHash, key, encoded); err != nil {
		return [32]byte{}, false, err
	}
	return newHash, true, nil
}
