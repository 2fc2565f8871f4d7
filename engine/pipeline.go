/*
pipeline.go - Stage orchestration and per-asset fan-out

PURPOSE:
  Drives one complete allocation run over a snapshot of uploaded
  sources:

    normalize sources ─┐
                       ├─> merge -> units -> classify -> revise -> normalize
    load rate catalog ─┘

  Source normalization and catalog loading are independent and run
  concurrently; both complete before the merge. From unit calculation
  onward every computation is scoped to a single asset's rows, so the
  tail of the pipeline fans out by asset across a bounded worker pool
  and fans back in before producing the final table.

OWNERSHIP:
  The merged row slice is sorted by asset, so each asset's rows form a
  contiguous sub-slice exclusively owned by the worker processing it.
  No locking is needed; no shared mutable state crosses asset
  boundaries.

CANCELLATION:
  The core performs no I/O, so the caller-supplied context is simply
  checked between per-asset batches to allow aborting long runs.
*/
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultWorkers = 4

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the allocation pipeline. The zero value is usable;
// New wires a logger and sensible defaults.
type Engine struct {
	// Workers bounds the per-asset fan-out. Zero means defaultWorkers.
	Workers int

	logger *zap.Logger
}

// New returns an Engine logging through the given logger.
// A nil logger disables logging.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Workers: defaultWorkers, logger: logger}
}

// Input is one complete snapshot of uploaded sources. All row lists
// are already-parsed tabular records; raw file parsing is external.
type Input struct {
	DrivingHistory []RawRow
	DailyUsage     []RawRow
	TimeOnSite     []RawRow
	Timecards      []RawRow

	Catalog   []RawRow
	Revisions []PMRevision
}

// Result is the final allocation table plus the run-level counters the
// caller displays or exports.
type Result struct {
	Rows    []AllocationRow
	Summary RunSummary
}

// =============================================================================
// RUN
// =============================================================================

// Run executes the full pipeline on one snapshot. The only errors are
// context cancellation and MalformedSourceError for a structurally
// unrecognized source; all per-row anomalies degrade into counters and
// audit notes instead.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	log := e.logger
	if log == nil {
		log = zap.NewNop()
	}

	// Catalog loading is independent of source normalization.
	catalogCh := make(chan *RateCatalog, 1)
	go func() {
		catalogCh <- LoadCatalog(in.Catalog)
	}()

	var (
		records []UsageRecord
		summary RunSummary
	)
	for _, src := range []struct {
		kind SourceKind
		rows []RawRow
	}{
		{SourceDrivingHistory, in.DrivingHistory},
		{SourceDailyUsage, in.DailyUsage},
		{SourceTimeOnSite, in.TimeOnSite},
		{SourceTimecard, in.Timecards},
	} {
		recs, outcomes, err := NormalizeSource(src.kind, src.rows)
		if err != nil {
			<-catalogCh
			return nil, err
		}
		records = append(records, recs...)
		summary.addSource(NewSourceReport(src.kind, outcomes))
	}

	catalog := <-catalogCh
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := Merge(records)
	index := NewRevisionIndex(in.Revisions)

	matched, overAllocated, err := e.processAssets(ctx, rows, catalog, index)
	if err != nil {
		return nil, err
	}

	summary.RowsProcessed = len(rows)
	summary.AssetsOverAllocated = overAllocated
	summary.UnmatchedRevisions = index.Unmatched(matched)

	if summary.UnmatchedRevisions > 0 {
		log.Warn("revisions with no matching allocation row",
			zap.Int("unmatched", summary.UnmatchedRevisions))
	}
	log.Info("allocation run complete",
		zap.Int("rows_processed", summary.RowsProcessed),
		zap.Int("rows_skipped", summary.RowsSkipped),
		zap.Int("assets_over_allocated", summary.AssetsOverAllocated),
		zap.Int("catalog_entries", catalog.Len()),
	)

	return &Result{Rows: rows, Summary: summary}, nil
}

// =============================================================================
// PER-ASSET FAN-OUT
// =============================================================================

type assetOutcome struct {
	overAllocated bool
	matched       []RowKey
}

// processAssets runs units -> classify -> revise -> normalize for each
// asset's contiguous row segment across a bounded worker pool.
func (e *Engine) processAssets(ctx context.Context, rows []AllocationRow, catalog *RateCatalog, index *RevisionIndex) (map[RowKey]bool, int, error) {
	segments := assetSegments(rows)

	workers := e.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(segments) {
		workers = len(segments)
	}
	if workers == 0 {
		return nil, 0, nil
	}

	jobs := make(chan []AllocationRow)
	results := make(chan assetOutcome, len(segments))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				if ctx.Err() != nil {
					return
				}
				CalculateUnits(seg, catalog)
				for i := range seg {
					Classify(&seg[i])
				}
				matched := index.ApplyRevisions(seg)
				over := NormalizeAllocation(seg)
				results <- assetOutcome{overAllocated: over, matched: matched}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, seg := range segments {
			select {
			case jobs <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	matched := make(map[RowKey]bool)
	overAllocated := 0
	for out := range results {
		if out.overAllocated {
			overAllocated++
		}
		for _, k := range out.matched {
			matched[k] = true
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return matched, overAllocated, nil
}

// assetSegments slices the sorted row list into one contiguous segment
// per asset. Each segment is exclusively owned by one worker.
func assetSegments(rows []AllocationRow) [][]AllocationRow {
	var segments [][]AllocationRow
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].AssetID != rows[start].AssetID {
			segments = append(segments, rows[start:i])
			start = i
		}
	}
	return segments
}
