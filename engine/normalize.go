/*
normalize.go - Over-allocation correction

PURPOSE:
  Enforces the central business rule: a physical asset cannot be billed
  for more than one full period-unit of work across all jobs combined.
  Unit calculation produces sums of exactly 1.0 by construction, but PM
  revisions (and re-merged multi-pass runs) can push an asset past it.

  When an asset's units sum beyond 1.0 (within Epsilon), every one of
  its rows is scaled by 1/sum and its amount recomputed. Manually
  revised units are scaled the same as computed ones. Each adjusted row
  gets an audit note recording the pre- and post-scaling values.

IDEMPOTENCE:
  After one pass the sum is exactly 1.0 within Epsilon, so a second
  pass is a no-op.
*/
package engine

import "fmt"

// NormalizeAllocation scales down the rows of a single asset whose
// units sum exceeds 1.0. It reports whether the asset was adjusted.
// Rows must all belong to the same asset.
func NormalizeAllocation(rows []AllocationRow) bool {
	sum := zero
	for i := range rows {
		sum = sum.Add(rows[i].Units)
	}
	if !sum.GreaterThan(one.Add(Epsilon)) {
		return false
	}

	factor := one.Div(sum)
	for i := range rows {
		r := &rows[i]
		before := r.Units
		r.SetUnits(r.Units.Mul(factor))
		r.AppendNote(fmt.Sprintf("Auto-adjusted from %s to %s",
			before.Round(2).String(), r.Units.Round(2).String()))
	}
	return true
}
