package cache_test

import (
	"testing"

	"github.com/defich/ocean/internal/cache"
	"github.com/defich/ocean/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCacheGetPutRemove(t *testing.T) {
	c := cache.New[uint32, string]("test", 8)

	_, ok := c.Get(1)
	require.False(t, ok)

	c.Put(1, "one")
	v, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	c.Remove(1)
	_, ok = c.Get(1)
	require.False(t, ok)
}

func TestSlotGetSetClear(t *testing.T) {
	s := cache.NewSlot[int]("test-slot")

	_, ok := s.Get()
	require.False(t, ok)

	s.Set(42)
	v, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, 42, v)

	s.Clear()
	_, ok = s.Get()
	require.False(t, ok)
}

func TestManagerBlockCoherence(t *testing.T) {
	m := cache.NewManager()

	b := model.Block{Height: 10, Hash: [32]byte{1, 2, 3}}
	m.PutBlock(b)

	got, ok := m.Blocks.Get(10)
	require.True(t, ok)
	require.Equal(t, b, got)

	h, ok := m.BlockHashes.Get(b.Hash)
	require.True(t, ok)
	require.Equal(t, uint32(10), h)

	latest, ok := m.LatestBlock.Get()
	require.True(t, ok)
	require.Equal(t, b, latest)

	m.RemoveBlock(b)
	_, ok = m.Blocks.Get(10)
	require.False(t, ok)
	_, ok = m.BlockHashes.Get(b.Hash)
	require.False(t, ok)
}
