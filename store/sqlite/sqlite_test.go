package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/allocation-engine/engine"
	"github.com/warp/allocation-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(id string) engine.AllocationRun {
	revised := decimal.NewFromFloat(0.7)
	rows := []engine.AllocationRow{
		{
			AssetID:              "A1",
			JobReference:         "2021-005 Main St",
			Driver:               "John Smith",
			Hours:                decimal.NewFromInt(3),
			AssetTotalHours:      decimal.NewFromInt(4),
			Rate:                 decimal.NewFromInt(100),
			EquipmentDescription: "Excavator",
			Region:               engine.RegionDFW,
			Division:             engine.DivisionHWY,
			JobNumber:            "2021-005",
			CostCode:             engine.CostCodeLegacy,
			Note:                 "Auto-adjusted from 0.9 to 0.75",
			RevisionUnits:        &revised,
		},
		{
			AssetID:              "A1",
			JobReference:         "2024-010 West Yard",
			Driver:               "Unassigned",
			Hours:                decimal.NewFromInt(1),
			AssetTotalHours:      decimal.NewFromInt(4),
			Rate:                 decimal.NewFromInt(100),
			EquipmentDescription: "Excavator",
			Region:               engine.RegionWT,
			Division:             engine.DivisionHWY,
			JobNumber:            "2024-010",
			CostCode:             engine.CostCodeCurrent,
		},
	}
	rows[0].SetUnits(decimal.NewFromFloat(0.75))
	rows[1].SetUnits(decimal.NewFromFloat(0.25))

	return engine.AllocationRun{
		ID:        id,
		CreatedAt: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
		Rows:      rows,
		Summary: engine.RunSummary{
			RowsProcessed:       2,
			RowsSkipped:         1,
			AssetsOverAllocated: 1,
			UnmatchedRevisions:  0,
			Sources: []engine.SourceReport{
				{Source: engine.SourceDailyUsage, Read: 3, Kept: 2, Skipped: 1,
					Reasons: map[engine.SkipReason]int{engine.SkipMissingAsset: 1}},
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := sampleRun("run-1")
	require.NoError(t, st.SaveRun(ctx, want))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at mismatch: %v vs %v", want.CreatedAt, got.CreatedAt)
	assert.Equal(t, want.Summary, got.Summary)
	require.Len(t, got.Rows, 2)

	for i := range want.Rows {
		w, g := want.Rows[i], got.Rows[i]
		assert.Equal(t, w.AssetID, g.AssetID)
		assert.Equal(t, w.JobReference, g.JobReference)
		assert.Equal(t, w.Driver, g.Driver)
		assert.True(t, w.Hours.Equal(g.Hours), "hours %s vs %s", w.Hours, g.Hours)
		assert.True(t, w.Units.Equal(g.Units), "units %s vs %s", w.Units, g.Units)
		assert.True(t, w.Amount.Equal(g.Amount), "amount %s vs %s", w.Amount, g.Amount)
		assert.Equal(t, w.Region, g.Region)
		assert.Equal(t, w.Division, g.Division)
		assert.Equal(t, w.JobNumber, g.JobNumber)
		assert.Equal(t, w.CostCode, g.CostCode)
		assert.Equal(t, w.Note, g.Note)
	}

	require.NotNil(t, got.Rows[0].RevisionUnits)
	assert.True(t, got.Rows[0].RevisionUnits.Equal(decimal.NewFromFloat(0.7)))
	assert.Nil(t, got.Rows[1].RevisionUnits)
}

func TestGetRun_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, engine.ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	older := sampleRun("run-old")
	older.CreatedAt = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRun("run-new")
	newer.CreatedAt = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveRun(ctx, older))
	require.NoError(t, st.SaveRun(ctx, newer))

	headers, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 2)

	assert.Equal(t, "run-new", headers[0].ID)
	assert.Equal(t, "run-old", headers[1].ID)
	assert.Equal(t, 2, headers[0].Summary.RowsProcessed)
}

func TestSaveRun_DuplicateIDFails(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleRun("run-1")))
	assert.Error(t, st.SaveRun(ctx, sampleRun("run-1")), "runs are write-once")
}

func TestReset(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleRun("run-1")))
	require.NoError(t, st.Reset(ctx))

	headers, err := st.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, headers)
}
