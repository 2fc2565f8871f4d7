/*
Package engine implements the equipment allocation and billing
normalization core.

PURPOSE:
  Independently collected equipment-usage reports (driving history,
  daily usage, time-on-site, timecards) describe overlapping views of
  the same physical fleet. This package reconciles them into a single
  per-asset/per-job allocation table, assigns billing cost codes,
  applies manual PM revisions, and enforces the central business rule
  that no asset is ever billed for more than one full period-unit
  of work across all jobs combined.

KEY CONCEPTS IN THIS FILE (types.go):
  - UsageRecord: One observed interval of equipment use (immutable)
  - RateInfo: Static rate/description reference data per asset
  - AllocationRow: The mutable working unit, one per (asset, job) pair
  - PMRevision: Manual override of computed units and/or cost code
  - Region/Division: Billing classification enums

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for hours, units, rates, and amounts
  2. Degrade, don't fail: malformed rows are counted, never fatal
  3. Amount coupling: Amount is only ever recomputed together with
     Units, never mutated independently
  4. Auditability: every automatic correction appends to Note

USAGE:
  eng := engine.New(logger)
  result, err := eng.Run(ctx, engine.Input{
      DrivingHistory: drivingRows,
      DailyUsage:     usageRows,
      Catalog:        rateRows,
  })

SEE ALSO:
  - pipeline.go: Stage orchestration and per-asset fan-out
  - classify.go: Region/division/job-number/cost-code inference
  - normalize.go: The over-allocation correction pass
*/
package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE KINDS
// =============================================================================

// SourceKind identifies which report shape a usage record came from.
type SourceKind string

const (
	SourceDrivingHistory SourceKind = "driving_history"
	SourceDailyUsage     SourceKind = "daily_usage"
	SourceTimeOnSite     SourceKind = "time_on_site"
	SourceTimecard       SourceKind = "timecard"
)

// AllSourceKinds lists every source kind in merge priority order.
// Lower index wins when sources disagree on a field (e.g., driver).
var AllSourceKinds = []SourceKind{
	SourceDrivingHistory,
	SourceDailyUsage,
	SourceTimeOnSite,
	SourceTimecard,
}

// Priority returns the merge priority of the source (lower = preferred).
func (k SourceKind) Priority() int {
	for i, s := range AllSourceKinds {
		if s == k {
			return i
		}
	}
	return len(AllSourceKinds)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AssetID string

// =============================================================================
// QUANTITY HELPERS
// =============================================================================

// Epsilon is the tolerance used for all per-asset unit-sum comparisons.
// Sums within Epsilon of 1.0 are considered exactly allocated.
var Epsilon = decimal.NewFromFloat(1e-9)

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// DefaultRate applies when an asset is absent from the rate catalog.
var DefaultRate = decimal.NewFromInt(75)

// DefaultDriver applies when no source contributed a driver name.
const DefaultDriver = "Unassigned"

// =============================================================================
// USAGE RECORD - One observed interval of equipment use
// =============================================================================

// UsageRecord is a single normalized observation from one source.
// Records are immutable once produced by source normalization; all
// downstream mutation happens on AllocationRows.
type UsageRecord struct {
	AssetID      AssetID
	JobReference string // free-text location/site string, may be empty
	Driver       string
	Hours        decimal.Decimal // non-negative; zero when unknown
	Source       SourceKind
}

// =============================================================================
// RATE INFO - Static reference data
// =============================================================================

// RateInfo carries the billing rate and description for one asset.
type RateInfo struct {
	AssetID              AssetID
	Rate                 decimal.Decimal
	EquipmentDescription string
}

// DefaultRateInfo returns the fallback used for assets missing from
// the catalog.
func DefaultRateInfo(assetID AssetID) RateInfo {
	return RateInfo{
		AssetID:              assetID,
		Rate:                 DefaultRate,
		EquipmentDescription: fmt.Sprintf("Equipment %s", assetID),
	}
}

// =============================================================================
// CLASSIFICATION ENUMS
// =============================================================================

// Region is the billing region inferred from the job reference.
type Region string

const (
	RegionDFW Region = "DFW" // default
	RegionHOU Region = "HOU"
	RegionWT  Region = "WT"
)

// Division is the billing division inferred from the job reference.
type Division string

const (
	DivisionHWY Division = "HWY" // default
	DivisionUTL Division = "UTL"
)

// Cost codes assigned by vintage rules; see CostCodeFor.
const (
	CostCodeLegacy  = "9000 100M"
	CostCodeCurrent = "9000 100F"
)

// =============================================================================
// ALLOCATION ROW - The mutable working unit
// =============================================================================

// AllocationRow is one line of the final allocation table: a single
// (asset, job) pairing with its share of the asset's period capacity.
// Rows are created by the merger and mutated in place through unit
// calculation, classification, revision, and normalization. No row is
// ever deleted mid-pipeline; unclassifiable rows receive defaults.
type AllocationRow struct {
	AssetID      AssetID
	JobReference string
	Driver       string

	// Hours observed for this pairing and the asset-wide total.
	Hours           decimal.Decimal
	AssetTotalHours decimal.Decimal

	// Units is the fraction of the asset's period capacity billed to
	// this job; always within [0, 1].
	Units decimal.Decimal

	Rate                 decimal.Decimal
	EquipmentDescription string

	// Amount = Units x Rate. Only mutated via SetUnits.
	Amount decimal.Decimal

	Region    Region
	Division  Division
	JobNumber string // canonical YYYY-NNN or synthetic; never empty after classification
	CostCode  string

	// RevisionUnits records a PM-supplied override, when one applied.
	RevisionUnits *decimal.Decimal

	// Note is an append-only audit trail.
	Note string
}

// SetUnits assigns units and recomputes amount in the same step.
// This is the only way units change after the row is created, which
// keeps the amount = units x rate invariant from drifting.
func (r *AllocationRow) SetUnits(units decimal.Decimal) {
	r.Units = units
	r.Amount = units.Mul(r.Rate)
}

// AppendNote adds an audit note, preserving any existing notes.
func (r *AllocationRow) AppendNote(note string) {
	if r.Note == "" {
		r.Note = note
		return
	}
	r.Note = r.Note + "; " + note
}

// Key returns the composite revision-matching key for this row.
func (r *AllocationRow) Key() RowKey {
	return RowKey{JobNumber: r.JobNumber, AssetID: r.AssetID}
}

// RowKey identifies a row for PM-revision matching.
type RowKey struct {
	JobNumber string
	AssetID   AssetID
}

// =============================================================================
// PM REVISION - Manual override
// =============================================================================

// PMRevision is a manually supplied correction for one (job, asset)
// pairing. Either field may be nil, meaning "leave as computed".
type PMRevision struct {
	JobNumber       string
	AssetID         AssetID
	RevisedUnits    *decimal.Decimal
	RevisedCostCode *string
}

// Key returns the composite matching key for this revision.
func (rev PMRevision) Key() RowKey {
	return RowKey{JobNumber: rev.JobNumber, AssetID: rev.AssetID}
}

// =============================================================================
// RAW ROWS - Input shape handed over by the parsing collaborator
// =============================================================================

// RawRow is one already-parsed tabular row: column name to cell text.
// Spreadsheet/CSV parsing is a collaborator concern; the engine only
// resolves column names against per-source synonym lists.
type RawRow map[string]string

// Lookup resolves the first matching synonym to its trimmed cell value.
// Column-name comparison is case-insensitive and ignores surrounding
// whitespace; the synonym order decides ties (first match wins).
func (r RawRow) Lookup(synonyms ...string) (string, bool) {
	for _, syn := range synonyms {
		for col, val := range r {
			if strings.EqualFold(strings.TrimSpace(col), syn) {
				return strings.TrimSpace(val), true
			}
		}
	}
	return "", false
}

// HasColumn reports whether any of the synonyms names a column in the
// row, regardless of the cell's content.
func (r RawRow) HasColumn(synonyms ...string) bool {
	for _, syn := range synonyms {
		for col := range r {
			if strings.EqualFold(strings.TrimSpace(col), syn) {
				return true
			}
		}
	}
	return false
}
