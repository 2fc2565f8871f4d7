/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine's philosophy is degrade-don't-fail: malformed individual
  rows are skipped and counted, never fatal. The errors here cover the
  few conditions that legitimately abort a run.

ERROR CATEGORIES:
  1. Structural input errors - a source that cannot be recognized at all
  2. Store errors - run persistence failures

USAGE:
  Callers distinguish structural failures with errors.Is/As:

    var malformed *engine.MalformedSourceError
    if errors.As(err, &malformed) {
        // drop the offending source and re-run, or abort
    }

SEE ALSO:
  - outcome.go: Per-row skip accounting (non-fatal anomalies)
  - sources/: Where MalformedSourceError originates
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedSource is returned when a source's rows carry no
	// recognizable asset-id column at all. Missing data in individual
	// rows never triggers this; only a structurally unrecognized input.
	ErrMalformedSource = errors.New("malformed source")

	// ErrRunNotFound is returned by run stores for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedSourceError names the source whose asset-id column could
// not be resolved against any accepted synonym. The caller decides
// whether to drop that source or abort the whole run.
type MalformedSourceError struct {
	Source  SourceKind
	Rows    int      // how many rows were inspected
	Columns []string // the column names actually present
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("source %s: no asset-id column found in any of %d rows (columns: %v)",
		e.Source, e.Rows, e.Columns)
}

func (e *MalformedSourceError) Unwrap() error {
	return ErrMalformedSource
}

// IsStructural returns true if the error indicates an unrecognizable
// input rather than a data-quality problem.
func IsStructural(err error) bool {
	return errors.Is(err, ErrMalformedSource)
}
