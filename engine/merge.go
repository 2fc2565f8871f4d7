/*
merge.go - Allocation merger

PURPOSE:
  Combines UsageRecords from all four sources into one AllocationRow
  per distinct (asset, job-reference) pair, preserving the union of
  information each source contributed. Different sources observe
  different parts of the same physical relationship: driving history
  knows the driver, timecards know the job, time-on-site knows the
  hours. The merge reunites them.

ALGORITHM:
  1. Records that lack a job reference are backfilled by asset: they
     contribute to every job reference any other source observed for
     that asset (a left join on asset id). Assets with no observed job
     reference anywhere keep an empty one and still produce a row.
  2. Within a group, hours are summed; driver is the first non-empty
     value in source priority order (driving history first, timecards
     last).
  3. Groups left with zero hours are assigned 1.0: every discovered
     pairing is presumed to represent at least a minimal unit of use
     rather than being silently under-billed.

SEE ALSO:
  - units.go: Consumes the merged rows
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MERGE
// =============================================================================

type mergeKey struct {
	Asset AssetID
	Job   string
}

type mergeGroup struct {
	row AllocationRow

	// driver provenance: source priority then input order decide ties
	driverPriority int
	driverSeq      int
}

// Merge folds usage records from all sources into one AllocationRow
// per (asset, job-reference) pair. Output ordering is deterministic:
// by asset id, then job reference.
func Merge(records []UsageRecord) []AllocationRow {
	// Known job references per asset, in first-seen order, for backfill.
	jobsByAsset := make(map[AssetID][]string)
	for _, rec := range records {
		if rec.JobReference == "" {
			continue
		}
		if !containsString(jobsByAsset[rec.AssetID], rec.JobReference) {
			jobsByAsset[rec.AssetID] = append(jobsByAsset[rec.AssetID], rec.JobReference)
		}
	}

	groups := make(map[mergeKey]*mergeGroup)

	for seq, rec := range records {
		jobs := []string{rec.JobReference}
		if rec.JobReference == "" {
			if known := jobsByAsset[rec.AssetID]; len(known) > 0 {
				jobs = known
			}
		}
		for _, job := range jobs {
			k := mergeKey{Asset: rec.AssetID, Job: job}
			g, ok := groups[k]
			if !ok {
				g = &mergeGroup{
					row: AllocationRow{
						AssetID:      rec.AssetID,
						JobReference: job,
						Hours:        decimal.Zero,
					},
					driverPriority: len(AllSourceKinds),
				}
				groups[k] = g
			}

			g.row.Hours = g.row.Hours.Add(rec.Hours)

			if rec.Driver != "" {
				p := rec.Source.Priority()
				if g.row.Driver == "" || p < g.driverPriority ||
					(p == g.driverPriority && seq < g.driverSeq) {
					g.row.Driver = rec.Driver
					g.driverPriority = p
					g.driverSeq = seq
				}
			}
		}
	}

	rows := make([]AllocationRow, 0, len(groups))
	for _, g := range groups {
		if g.row.Driver == "" {
			g.row.Driver = DefaultDriver
		}
		if g.row.Hours.IsZero() {
			g.row.Hours = one
		}
		rows = append(rows, g.row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AssetID != rows[j].AssetID {
			return rows[i].AssetID < rows[j].AssetID
		}
		return rows[i].JobReference < rows[j].JobReference
	})

	return rows
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
