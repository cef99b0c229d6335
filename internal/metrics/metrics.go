// Package metrics exposes Ocean's Prometheus instrumentation, following the
// per-concern gauge/counter-vector style of the teacher's pkg/metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IndexerHeight is the height of the last fully indexed block.
	IndexerHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ocean_indexer_height",
		Help: "Height of the last block the indexer fully applied",
	})

	// IndexerBlocksIndexedTotal counts forward-indexed blocks.
	IndexerBlocksIndexedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocean_indexer_blocks_indexed_total",
		Help: "Total number of blocks indexed",
	})

	// IndexerBlocksInvalidatedTotal counts invalidated (reorged-away) blocks.
	IndexerBlocksInvalidatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocean_indexer_blocks_invalidated_total",
		Help: "Total number of blocks invalidated",
	})

	// IndexerBlockDuration times one forward index or invalidate cycle.
	IndexerBlockDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ocean_indexer_block_duration_seconds",
		Help: "Time spent processing one block",
	}, []string{"direction"})

	// IndexerRetriesTotal counts per-height retry attempts after an aborted block.
	IndexerRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocean_indexer_retries_total",
		Help: "Total number of block indexing retries after an abort",
	})

	// ColumnOpsTotal counts column-level operations by column and op kind.
	ColumnOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocean_column_ops_total",
		Help: "Total column operations by column name and operation",
	}, []string{"column", "op"})

	// CacheHitsTotal / CacheMissesTotal track LRU coherence per cache.
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocean_cache_hits_total",
		Help: "Total cache hits by cache name",
	}, []string{"cache"})

	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocean_cache_misses_total",
		Help: "Total cache misses by cache name",
	}, []string{"cache"})

	// PoolSwapBucketSkippedTotal counts swaps skipped because no bucket existed.
	PoolSwapBucketSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocean_poolswap_bucket_skipped_total",
		Help: "Total pool swaps skipped because no aggregation bucket existed",
	})

	// UpstreamRPCDuration times calls to the upstream node.
	UpstreamRPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ocean_upstream_rpc_duration_seconds",
		Help: "Time spent in upstream JSON-RPC calls",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(
		IndexerHeight,
		IndexerBlocksIndexedTotal,
		IndexerBlocksInvalidatedTotal,
		IndexerBlockDuration,
		IndexerRetriesTotal,
		ColumnOpsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		PoolSwapBucketSkippedTotal,
		UpstreamRPCDuration,
	)
}

// Handler returns the HTTP handler that serves /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time against the given observer.
func (t *Timer) ObserveDuration(o prometheus.Observer) time.Duration {
	d := time.Since(t.start)
	o.Observe(d.Seconds())
	return d
}
