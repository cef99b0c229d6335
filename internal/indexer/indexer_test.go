package indexer_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/defich/ocean/internal/cache"
	"github.com/defich/ocean/internal/config"
	"github.com/defich/ocean/internal/indexer"
	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/schema"
	"github.com/defich/ocean/internal/trie"
)

func newTestIndexer(t *testing.T) *indexer.Indexer {
	t.Helper()
	dir := t.TempDir()
	buckets := append(schema.Buckets(), trie.Buckets()...)
	store, err := kv.Open(filepath.Join(dir, "idx.db"), kv.DefaultOptions(), buckets)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	preset, err := config.PresetFor(config.NetworkRegtest)
	require.NoError(t, err)
	return indexer.New(schema.New(store), cache.NewManager(), trie.NewKV(store), preset)
}

func block(height uint32, hash, parent byte) indexer.BlockInput {
	return indexer.BlockInput{
		Hash:       [32]byte{hash},
		ParentHash: [32]byte{parent},
		Height:     height,
		Time:       int64(height) * 100,
		MedianTime: int64(height) * 100,
		Raw:        []byte{hash},
	}
}

func TestIndexBlockAdvancesTip(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexBlock(ctx, block(1, 0x01, 0x00)))
	require.NoError(t, ix.IndexBlock(ctx, block(2, 0x02, 0x01)))

	tip, ok, err := ix.Tip()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), tip.Height)
	require.Equal(t, [32]byte{0x02}, tip.Hash)
}

func TestInvalidateTipRewindsToParent(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexBlock(ctx, block(1, 0x01, 0x00)))
	require.NoError(t, ix.IndexBlock(ctx, block(2, 0x02, 0x01)))

	src := fixedSource{blocks: map[uint32]indexer.BlockInput{
		2: block(2, 0x02, 0x01),
	}}
	require.NoError(t, ix.InvalidateTip(ctx, src))

	tip, ok, err := ix.Tip()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), tip.Height)
	require.Equal(t, [32]byte{0x01}, tip.Hash)
}

func TestInvalidateOnlyBlockLeavesNoTip(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexBlock(ctx, block(1, 0x01, 0x00)))
	src := fixedSource{blocks: map[uint32]indexer.BlockInput{
		1: block(1, 0x01, 0x00),
	}}
	require.NoError(t, ix.InvalidateTip(ctx, src))

	_, ok, err := ix.Tip()
	require.NoError(t, err)
	require.False(t, ok, "rewinding the only indexed block must leave no tip")
}

type fixedSource struct {
	blocks map[uint32]indexer.BlockInput
}

func (s fixedSource) TipHeight(ctx context.Context) (uint32, error) { return 0, nil }

func (s fixedSource) BlockAtHeight(ctx context.Context, height uint32) (*indexer.BlockInput, error) {
	b := s.blocks[height]
	return &b, nil
}
