/*
units.go - Unit and amount calculation

PURPOSE:
  Converts merged hours into proportional period-units and monetary
  amounts. An asset's total observed hours represents 100% of its
  billable capacity for the period; each job gets credit for its share.

GUARANTEE:
  Immediately after this step, the units of an asset's rows sum to
  exactly 1.0 (when it has any hours) or 0. The later normalization
  pass exists only because PM revisions can reintroduce violations.

SEE ALSO:
  - catalog.go: Rate lookups
  - normalize.go: Post-revision correction
*/
package engine

// CalculateUnits computes asset total hours, per-row unit shares, and
// amounts for every row of a single asset. The rows slice must contain
// all of one asset's rows and nothing else; callers fan out by asset.
func CalculateUnits(rows []AllocationRow, catalog *RateCatalog) {
	total := zero
	for i := range rows {
		total = total.Add(rows[i].Hours)
	}

	for i := range rows {
		r := &rows[i]
		r.AssetTotalHours = total

		info := catalog.Lookup(r.AssetID)
		r.Rate = info.Rate
		r.EquipmentDescription = info.EquipmentDescription

		if total.IsPositive() {
			units := r.Hours.Div(total)
			if units.GreaterThan(one) {
				units = one
			}
			r.SetUnits(units)
		} else {
			r.SetUnits(zero)
		}
	}
}
