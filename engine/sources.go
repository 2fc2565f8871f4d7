/*
sources.go - Source normalization

PURPOSE:
  Converts the four raw report shapes into the common UsageRecord
  representation. Each source kind carries a fixed, ordered list of
  accepted column synonyms resolved once per row; loosely-typed rows
  never travel past this stage.

CONTRACT:
  - Rows missing asset identity (or job text, for sources that require
    it) are dropped and counted, not defaulted. Defaulting happens
    after merge.
  - Field-level parse failures (an unparseable hours cell) degrade the
    field to its unknown default instead of dropping the row.
  - The only fatal condition is structural: a non-empty source with no
    recognizable asset-id column in any row raises MalformedSourceError.
*/
package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLUMN MAPPINGS - One fixed shape per source kind
// =============================================================================

// sourceShape describes how one source kind's columns map onto
// UsageRecord fields. Synonym lists are ordered; first match wins.
type sourceShape struct {
	// asset columns. When assetSplitsDriver is set the cell is an
	// "ID - Driver Name" label split on the first " - ".
	asset             []string
	assetSplitsDriver bool

	// job/location columns. jobRequired sources drop rows without one;
	// the rest leave it empty for the merger to backfill by asset.
	job         []string
	jobRequired bool

	driver []string

	// hours columns. hoursClock sources report "H:MM" time-on-site
	// values instead of decimal hours.
	hours      []string
	hoursClock bool
}

var sourceShapes = map[SourceKind]sourceShape{
	SourceDrivingHistory: {
		asset:             []string{"AssetLabel", "Asset Label", "Asset"},
		assetSplitsDriver: true,
		job:               []string{"Location", "Job", "Site"},
		hours:             []string{"Hours", "Drive Time", "Driving Hours"},
	},
	SourceDailyUsage: {
		asset:       []string{"Equipment", "Equipment ID", "Asset", "Unit"},
		job:         []string{"Job", "Location", "Site"},
		jobRequired: true,
		driver:      []string{"Operator", "Driver"},
		hours:       []string{"Hours", "Usage Hours"},
	},
	SourceTimeOnSite: {
		asset:       []string{"Asset", "Equipment", "Unit"},
		job:         []string{"Site", "Location", "Job Site"},
		jobRequired: true,
		driver:      []string{"Driver", "Operator"},
		hours:       []string{"TimeOnSite", "Time On Site"},
		hoursClock:  true,
	},
	SourceTimecard: {
		asset:  []string{"Equipment", "Equipment ID", "Asset"},
		job:    []string{"Job", "Job Description"},
		driver: []string{"Employee", "Employee Name", "Name"},
		hours:  []string{"Hours", "Reg Hours", "Regular Hours"},
	},
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeSource converts one source's raw rows into UsageRecords,
// producing a structured Outcome per input row.
func NormalizeSource(kind SourceKind, rows []RawRow) ([]UsageRecord, []Outcome, error) {
	sh, ok := sourceShapes[kind]
	if !ok {
		return nil, nil, &MalformedSourceError{Source: kind, Rows: len(rows)}
	}

	if len(rows) > 0 && !anyHasColumn(rows, sh.asset) {
		return nil, nil, &MalformedSourceError{
			Source:  kind,
			Rows:    len(rows),
			Columns: columnNames(rows),
		}
	}

	records := make([]UsageRecord, 0, len(rows))
	outcomes := make([]Outcome, 0, len(rows))

	for i, row := range rows {
		if isEmptyRow(row) {
			outcomes = append(outcomes, Outcome{Source: kind, Reason: SkipEmptyRow, RowIdx: i})
			continue
		}

		assetCell, _ := row.Lookup(sh.asset...)
		asset, driver := splitAssetLabel(assetCell, sh.assetSplitsDriver)
		if asset == "" {
			outcomes = append(outcomes, Outcome{Source: kind, Reason: SkipMissingAsset, RowIdx: i})
			continue
		}

		job, _ := row.Lookup(sh.job...)
		if job == "" && sh.jobRequired {
			outcomes = append(outcomes, Outcome{Source: kind, Reason: SkipMissingJob, RowIdx: i})
			continue
		}

		if driver == "" {
			driver, _ = row.Lookup(sh.driver...)
		}

		hoursCell, _ := row.Lookup(sh.hours...)
		hours := parseHours(hoursCell, sh.hoursClock)

		records = append(records, UsageRecord{
			AssetID:      AssetID(asset),
			JobReference: job,
			Driver:       driver,
			Hours:        hours,
			Source:       kind,
		})
		outcomes = append(outcomes, Outcome{Source: kind, Kept: true, RowIdx: i})
	}

	return records, outcomes, nil
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

// splitAssetLabel separates an "A1 - John Smith" style label into asset
// id and driver name. Labels without the separator are all asset id.
func splitAssetLabel(cell string, split bool) (asset, driver string) {
	if !split {
		return cell, ""
	}
	if idx := strings.Index(cell, " - "); idx >= 0 {
		return strings.TrimSpace(cell[:idx]), strings.TrimSpace(cell[idx+3:])
	}
	return cell, ""
}

// parseHours parses an hours cell, degrading to zero on failure.
// Clock-format sources report "H:MM"; a clock cell without a colon
// still parses as plain decimal hours.
func parseHours(cell string, clock bool) decimal.Decimal {
	if cell == "" {
		return decimal.Zero
	}
	if clock {
		if h, ok := parseClock(cell); ok {
			return h
		}
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func parseClock(cell string) (decimal.Decimal, bool) {
	parts := strings.Split(cell, ":")
	if len(parts) != 2 {
		return decimal.Zero, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 {
		return decimal.Zero, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return decimal.Zero, false
	}
	hours := decimal.NewFromInt(int64(h)).
		Add(decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(60)))
	return hours, true
}

// =============================================================================
// STRUCTURAL HELPERS
// =============================================================================

func anyHasColumn(rows []RawRow, synonyms []string) bool {
	for _, row := range rows {
		if row.HasColumn(synonyms...) {
			return true
		}
	}
	return false
}

func isEmptyRow(row RawRow) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func columnNames(rows []RawRow) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
