/*
outcome.go - Per-row processing outcomes and the run summary

PURPOSE:
  Operators need to know what happened to every row they uploaded, not
  just which ones survived. Instead of swallowing per-row
  failures in log lines, each row produces a structured Outcome that is
  aggregated into run-level counters.

KEY CONCEPTS:
  Outcome:      kept | skipped-with-reason, for one raw input row
  SourceReport: per-source tallies (read/kept/skipped by reason)
  RunSummary:   the counters the caller displays or exports

SEE ALSO:
  - sources/: Produces Outcomes during normalization
  - pipeline.go: Aggregates them into the RunSummary
*/
package engine

// =============================================================================
// SKIP REASONS
// =============================================================================

// SkipReason explains why a raw row was excluded during normalization.
type SkipReason string

const (
	SkipMissingAsset SkipReason = "missing_asset"
	SkipMissingJob   SkipReason = "missing_job"
	SkipEmptyRow     SkipReason = "empty_row"
)

// =============================================================================
// OUTCOME - One row's fate
// =============================================================================

// Outcome records what happened to a single raw row.
type Outcome struct {
	Source SourceKind
	Kept   bool
	Reason SkipReason // set only when !Kept
	RowIdx int        // index within the source's row list
}

// =============================================================================
// SOURCE REPORT - Per-source tallies
// =============================================================================

// SourceReport aggregates outcomes for one source kind.
type SourceReport struct {
	Source  SourceKind         `json:"source"`
	Read    int                `json:"read"`
	Kept    int                `json:"kept"`
	Skipped int                `json:"skipped"`
	Reasons map[SkipReason]int `json:"reasons,omitempty"`
}

// NewSourceReport builds a report from a slice of outcomes.
func NewSourceReport(source SourceKind, outcomes []Outcome) SourceReport {
	r := SourceReport{Source: source, Reasons: make(map[SkipReason]int)}
	for _, o := range outcomes {
		r.Read++
		if o.Kept {
			r.Kept++
			continue
		}
		r.Skipped++
		r.Reasons[o.Reason]++
	}
	return r
}

// =============================================================================
// RUN SUMMARY - What the caller sees
// =============================================================================

// RunSummary carries the run-level counters surfaced to the caller.
// Anomalies live here and in per-row audit notes, never in exceptions.
type RunSummary struct {
	RowsProcessed       int            `json:"rows_processed"`
	RowsSkipped         int            `json:"rows_skipped"`
	AssetsOverAllocated int            `json:"assets_over_allocated"`
	UnmatchedRevisions  int            `json:"unmatched_revisions"`
	Sources             []SourceReport `json:"sources,omitempty"`
}

func (s *RunSummary) addSource(r SourceReport) {
	s.Sources = append(s.Sources, r)
	s.RowsSkipped += r.Skipped
}
