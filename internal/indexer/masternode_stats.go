// Masternode-stats snapshot, per spec.md §4.6 step 4 / §3 "Masternode-Stats".
// Grounded on the full-scan-and-bucket shape of
// original_source/ain-ocean's masternode stats aggregation (no partial
// update path exists; a snapshot is always a fresh full tally).
package indexer

import (
	"sort"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/schema"
)

// snapshotMasternodeStats tallies every non-resigned masternode into a
// per-height snapshot: total count, total collateral, and counts bucketed
// by timelock (in weeks).
func snapshotMasternodeStats(columns *schema.Columns, height uint32) error {
	buckets := map[uint16]uint32{}
	var totalCount uint32
	var totalCollateral int64

	for pair, err := range columns.Masternode.List(nil, kv.Forward) {
		if err != nil {
			return err
		}
		mn := pair.Value
		if mn.HasResigned {
			continue
		}
		totalCount++
		totalCollateral += mn.Collateral
		if mn.TimeLock > 0 {
			buckets[mn.TimeLock]++
		}
	}

	weeks := make([]uint16, 0, len(buckets))
	for w := range buckets {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i] < weeks[j] })

	timeLocked := make([]model.TimeLockBucket, 0, len(weeks))
	for _, w := range weeks {
		timeLocked = append(timeLocked, model.TimeLockBucket{Weeks: w, Count: buckets[w]})
	}

	return columns.MasternodeStats.Put(height, model.MasternodeStats{
		Height:             height,
		TotalCount:         totalCount,
		TotalTVLCollateral: totalCollateral,
		TimeLocked:         timeLocked,
	})
}

// unapplyMasternodeStats deletes the snapshot written at height, per
// spec.md §4.8.
func unapplyMasternodeStats(columns *schema.Columns, height uint32) error {
	return columns.MasternodeStats.Delete(height)
}
