/*
revision.go - PM revision overlay

PURPOSE:
  Project managers review the computed allocation and hand back
  corrections: alternate units and/or cost codes for specific
  (job number, asset) pairings. This pass overlays those corrections
  onto matching rows. Revised units can push an asset past its 1.0
  capacity, which is exactly why normalization runs afterwards.

MATCHING:
  Revisions match rows on the composite (JobNumber, AssetID) key.
  Unmatched revisions are reported back to the caller, never fatal.
*/
package engine

import "fmt"

// RevisionIndex is a read-only lookup of revisions by row key, shared
// across per-asset workers.
type RevisionIndex struct {
	byKey map[RowKey][]PMRevision
	total int
}

// NewRevisionIndex builds the lookup. Revisions without a job number
// or asset id can never match and are dropped up front.
func NewRevisionIndex(revisions []PMRevision) *RevisionIndex {
	idx := &RevisionIndex{byKey: make(map[RowKey][]PMRevision, len(revisions))}
	for _, rev := range revisions {
		if rev.JobNumber == "" || rev.AssetID == "" {
			continue
		}
		idx.byKey[rev.Key()] = append(idx.byKey[rev.Key()], rev)
		idx.total++
	}
	return idx
}

// Total returns the number of matchable revisions indexed.
func (idx *RevisionIndex) Total() int {
	if idx == nil {
		return 0
	}
	return idx.total
}

// Unmatched counts the indexed revisions whose key matched no row.
func (idx *RevisionIndex) Unmatched(matched map[RowKey]bool) int {
	if idx == nil {
		return 0
	}
	n := 0
	for k, revs := range idx.byKey {
		if !matched[k] {
			n += len(revs)
		}
	}
	return n
}

// ApplyRevisions overlays matching revisions onto the rows of a single
// asset. It returns the keys that matched, so the pipeline can count
// unmatched revisions across all assets after fan-in.
func (idx *RevisionIndex) ApplyRevisions(rows []AllocationRow) []RowKey {
	if idx == nil || idx.total == 0 {
		return nil
	}

	var matched []RowKey
	for i := range rows {
		row := &rows[i]
		revs, ok := idx.byKey[row.Key()]
		if !ok {
			continue
		}
		matched = append(matched, row.Key())

		for _, rev := range revs {
			if rev.RevisedUnits != nil {
				u := *rev.RevisedUnits
				row.RevisionUnits = &u
				row.SetUnits(u)
				row.AppendNote(fmt.Sprintf("PM revision: units set to %s", u.String()))
			}
			if rev.RevisedCostCode != nil {
				row.CostCode = *rev.RevisedCostCode
			}
		}
	}
	return matched
}
