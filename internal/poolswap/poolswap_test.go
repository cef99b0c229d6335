package poolswap_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/poolswap"
	"github.com/defich/ocean/internal/schema"
)

func openColumns(t *testing.T) *schema.Columns {
	t.Helper()
	dir := t.TempDir()
	s, err := kv.Open(filepath.Join(dir, "idx.db"), kv.DefaultOptions(), schema.Buckets())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return schema.New(s)
}

func seedBucket(t *testing.T, columns *schema.Columns, poolID uint32, interval poolswap.Interval, bucketStart int64) {
	t.Helper()
	key := schema.PoolSwapAggKey{PoolID: poolID, Interval: uint32(interval), BucketStart: bucketStart}
	require.NoError(t, columns.PoolSwapAggregated.Put(key, model.PoolSwapAggregatedBucket{
		PoolID: poolID, Interval: uint32(interval), BucketStart: bucketStart,
	}))
}

func bucketAmount(t *testing.T, columns *schema.Columns, poolID uint32, interval poolswap.Interval, bucketStart int64, tokenID uint64) string {
	t.Helper()
	key := schema.PoolSwapAggKey{PoolID: poolID, Interval: uint32(interval), BucketStart: bucketStart}
	bucket, ok, err := columns.PoolSwapAggregated.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	return bucket.Amounts[tokenID]
}

func TestApplyAccumulatesIntoLatestBucketOfEveryInterval(t *testing.T) {
	columns := openColumns(t)
	seedBucket(t, columns, 1, poolswap.IntervalOneDay, 0)
	seedBucket(t, columns, 1, poolswap.IntervalOneHour, 0)

	engine := poolswap.New(columns)
	require.NoError(t, engine.Apply(1, 5, 2*poolswap.COIN, [32]byte{0xAA}))

	require.Equal(t, "2.00000000", bucketAmount(t, columns, 1, poolswap.IntervalOneDay, 0, 5))
	require.Equal(t, "2.00000000", bucketAmount(t, columns, 1, poolswap.IntervalOneHour, 0, 5))
}

func TestApplyPicksTheLatestBucketWhenSeveralExist(t *testing.T) {
	columns := openColumns(t)
	seedBucket(t, columns, 1, poolswap.IntervalOneHour, 0)
	seedBucket(t, columns, 1, poolswap.IntervalOneHour, 3600)

	engine := poolswap.New(columns)
	require.NoError(t, engine.Apply(1, 5, 1*poolswap.COIN, [32]byte{0xAA}))

	require.Equal(t, "1.00000000", bucketAmount(t, columns, 1, poolswap.IntervalOneHour, 3600, 5))
	require.Equal(t, "", bucketAmount(t, columns, 1, poolswap.IntervalOneHour, 0, 5))
}

func TestApplyThenUnapplyIsANoOp(t *testing.T) {
	columns := openColumns(t)
	seedBucket(t, columns, 1, poolswap.IntervalOneDay, 0)
	seedBucket(t, columns, 1, poolswap.IntervalOneHour, 0)

	engine := poolswap.New(columns)
	require.NoError(t, engine.Apply(1, 5, 3*poolswap.COIN, [32]byte{0xAA}))
	require.NoError(t, engine.Unapply(1, 5, 3*poolswap.COIN, [32]byte{0xAA}))

	require.Equal(t, "0.00000000", bucketAmount(t, columns, 1, poolswap.IntervalOneDay, 0, 5))
	require.Equal(t, "0.00000000", bucketAmount(t, columns, 1, poolswap.IntervalOneHour, 0, 5))
}

func TestApplyWithNoBucketIsSkippedNotAnError(t *testing.T) {
	columns := openColumns(t)
	engine := poolswap.New(columns)

	require.NoError(t, engine.Apply(99, 5, poolswap.COIN, [32]byte{0xBB}))
}
