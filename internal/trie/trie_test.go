package trie_test

import (
	"path/filepath"
	"testing"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/trie"
	"github.com/stretchr/testify/require"
)

func openTrieKV(t *testing.T) trie.KV {
	t.Helper()
	dir := t.TempDir()
	s, err := kv.Open(filepath.Join(dir, "trie.db"), kv.DefaultOptions(), trie.Buckets())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return trie.NewKV(s)
}

func TestEmptyNodeHashReturnsZeroByte(t *testing.T) {
	kvStore := openTrieKV(t)
	v, ok, err := kvStore.Get(trie.EmptyNodeHash, []byte("anything"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0}, v)
}

func TestMutableInsertGetRemove(t *testing.T) {
	kvStore := openTrieKV(t)
	m := trie.NewMutable(kvStore, trie.GenesisStateRoot)
	require.True(t, m.IsEmpty())

	require.NoError(t, m.Insert([]byte("alice"), []byte("balance:100")))
	require.NoError(t, m.Insert([]byte("bob"), []byte("balance:50")))
	require.False(t, m.IsEmpty())

	v, ok, err := m.Get([]byte("alice"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("balance:100"), v)

	root := m.Root()

	require.NoError(t, m.Remove([]byte("alice")))
	_, ok, err = m.Get([]byte("alice"))
	require.NoError(t, err)
	require.False(t, ok)

	// bob is untouched by alice's removal.
	v, ok, err = m.Get([]byte("bob"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("balance:50"), v)

	require.NotEqual(t, root, m.Root())
}

func TestImmutableViewSeesHistoricalRoot(t *testing.T) {
	kvStore := openTrieKV(t)
	m := trie.NewMutable(kvStore, trie.GenesisStateRoot)

	require.NoError(t, m.Insert([]byte("k"), []byte("v1")))
	rootAfterFirst := m.Root()

	require.NoError(t, m.Insert([]byte("k"), []byte("v2")))

	historical := trie.NewImmutable(kvStore, rootAfterFirst)
	v, ok, err := historical.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)

	current := trie.NewImmutable(kvStore, m.Root())
	v, ok, err = current.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), v)
}
