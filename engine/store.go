/*
store.go - Persistence interface for completed allocation runs

PURPOSE:
  The engine itself is a pure computation library; persistence is a
  collaborator concern. This interface lets the surrounding system
  store completed runs (the allocation table plus its summary) so
  reporting and export can fetch them later.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - engine/store: In-memory store for testing/dev
*/
package engine

import (
	"context"
	"time"
)

// AllocationRun is one completed run: the frozen allocation table and
// its summary, keyed by a caller-assigned run ID.
type AllocationRun struct {
	ID        string
	CreatedAt time.Time
	Rows      []AllocationRow
	Summary   RunSummary
}

// RunHeader is the listing view of a run: identity and counters
// without the row payload.
type RunHeader struct {
	ID        string
	CreatedAt time.Time
	Summary   RunSummary
}

// RunStore persists completed allocation runs. Runs are immutable once
// saved; there is no update operation.
type RunStore interface {
	// SaveRun persists a completed run.
	SaveRun(ctx context.Context, run AllocationRun) error

	// GetRun returns a run by ID, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*AllocationRun, error)

	// ListRuns returns headers for all stored runs, newest first.
	ListRuns(ctx context.Context) ([]RunHeader, error)
}
