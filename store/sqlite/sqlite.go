/*
Package sqlite provides a SQLite-backed implementation of the run store.

PURPOSE:
  Persists completed allocation runs so the reporting and export
  surfaces can fetch them after the fact. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.RunStore: Save, fetch, and list allocation runs

IMMUTABILITY:
  Runs are write-once. There are no UPDATE statements; a re-run of the
  same snapshot produces a new run under a new ID.

KEY TABLES:
  runs:            One row per completed run with its summary counters
  allocation_rows: The allocation table, ordered by position

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't
  block the writer and crash recovery is cleaner.

USAGE:
  st, err := sqlite.New("./data/allocations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/allocation-engine/engine"
)

// Store implements engine.RunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.RunStore = (*Store)(nil)

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id                    TEXT PRIMARY KEY,
		created_at            TIMESTAMP NOT NULL,
		rows_processed        INTEGER NOT NULL,
		rows_skipped          INTEGER NOT NULL,
		assets_over_allocated INTEGER NOT NULL,
		unmatched_revisions   INTEGER NOT NULL,
		sources_json          TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS allocation_rows (
		run_id                TEXT NOT NULL REFERENCES runs(id),
		position              INTEGER NOT NULL,
		asset_id              TEXT NOT NULL,
		job_reference         TEXT NOT NULL,
		driver                TEXT NOT NULL,
		hours                 TEXT NOT NULL,
		asset_total_hours     TEXT NOT NULL,
		units                 TEXT NOT NULL,
		rate                  TEXT NOT NULL,
		amount                TEXT NOT NULL,
		equipment_description TEXT NOT NULL,
		region                TEXT NOT NULL,
		division              TEXT NOT NULL,
		job_number            TEXT NOT NULL,
		cost_code             TEXT NOT NULL,
		revision_units        TEXT,
		note                  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_allocation_rows_asset
		ON allocation_rows(run_id, asset_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// =============================================================================
// RUN STORE IMPLEMENTATION
// =============================================================================

// SaveRun persists a completed run and its rows atomically.
func (s *Store) SaveRun(ctx context.Context, run engine.AllocationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sourcesJSON, err := json.Marshal(run.Summary.Sources)
	if err != nil {
		return fmt.Errorf("encode source reports: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, rows_processed, rows_skipped,
			assets_over_allocated, unmatched_revisions, sources_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), run.Summary.RowsProcessed,
		run.Summary.RowsSkipped, run.Summary.AssetsOverAllocated,
		run.Summary.UnmatchedRevisions, string(sourcesJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO allocation_rows (run_id, position, asset_id,
			job_reference, driver, hours, asset_total_hours, units, rate,
			amount, equipment_description, region, division, job_number,
			cost_code, revision_units, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range run.Rows {
		var revUnits *string
		if row.RevisionUnits != nil {
			v := row.RevisionUnits.String()
			revUnits = &v
		}
		_, err = stmt.ExecContext(ctx,
			run.ID, i, string(row.AssetID), row.JobReference, row.Driver,
			row.Hours.String(), row.AssetTotalHours.String(),
			row.Units.String(), row.Rate.String(), row.Amount.String(),
			row.EquipmentDescription, string(row.Region),
			string(row.Division), row.JobNumber, row.CostCode,
			revUnits, row.Note,
		)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a run and its rows, or engine.ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*engine.AllocationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := engine.AllocationRun{ID: id}
	var sourcesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, rows_processed, rows_skipped,
			assets_over_allocated, unmatched_revisions, sources_json
		FROM runs WHERE id = ?`, id,
	).Scan(&run.CreatedAt, &run.Summary.RowsProcessed,
		&run.Summary.RowsSkipped, &run.Summary.AssetsOverAllocated,
		&run.Summary.UnmatchedRevisions, &sourcesJSON)
	if err == sql.ErrNoRows {
		return nil, engine.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &run.Summary.Sources); err != nil {
		return nil, fmt.Errorf("decode source reports: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, job_reference, driver, hours, asset_total_hours,
			units, rate, amount, equipment_description, region, division,
			job_number, cost_code, revision_units, note
		FROM allocation_rows WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                                 engine.AllocationRow
			assetID, region, division         string
			hours, total, units, rate, amount string
			revUnits                          *string
		)
		err := rows.Scan(&assetID, &r.JobReference, &r.Driver, &hours,
			&total, &units, &rate, &amount, &r.EquipmentDescription,
			&region, &division, &r.JobNumber, &r.CostCode, &revUnits, &r.Note)
		if err != nil {
			return nil, err
		}
		r.AssetID = engine.AssetID(assetID)
		r.Region = engine.Region(region)
		r.Division = engine.Division(division)
		if r.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("decode hours: %w", err)
		}
		if r.AssetTotalHours, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("decode asset total hours: %w", err)
		}
		if r.Units, err = decimal.NewFromString(units); err != nil {
			return nil, fmt.Errorf("decode units: %w", err)
		}
		if r.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("decode rate: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
		if revUnits != nil {
			d, err := decimal.NewFromString(*revUnits)
			if err != nil {
				return nil, fmt.Errorf("decode revision units: %w", err)
			}
			r.RevisionUnits = &d
		}
		run.Rows = append(run.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRuns returns headers for all stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]engine.RunHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, rows_processed, rows_skipped,
			assets_over_allocated, unmatched_revisions, sources_json
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []engine.RunHeader
	for rows.Next() {
		var (
			h           engine.RunHeader
			sourcesJSON string
		)
		err := rows.Scan(&h.ID, &h.CreatedAt, &h.Summary.RowsProcessed,
			&h.Summary.RowsSkipped, &h.Summary.AssetsOverAllocated,
			&h.Summary.UnmatchedRevisions, &sourcesJSON)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &h.Summary.Sources); err != nil {
			return nil, fmt.Errorf("decode source reports: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// Reset drops all stored runs. Dev/test helper.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM allocation_rows; DELETE FROM runs;`)
	return err
}
