package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/allocation-engine/engine"
	"github.com/warp/allocation-engine/engine/store"
)

func TestMemory_SaveGetList(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	row := engine.AllocationRow{AssetID: "A1", JobNumber: "2023-001", Rate: decimal.NewFromInt(100)}
	row.SetUnits(decimal.NewFromInt(1))

	run := engine.AllocationRun{
		ID:        "run-1",
		CreatedAt: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Rows:      []engine.AllocationRow{row},
		Summary:   engine.RunSummary{RowsProcessed: 1},
	}
	require.NoError(t, m.SaveRun(ctx, run))

	got, err := m.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	require.Len(t, got.Rows, 1)
	assert.True(t, got.Rows[0].Units.Equal(decimal.NewFromInt(1)))

	// Stored runs are isolated from caller mutation.
	got.Rows[0].JobNumber = "mutated"
	again, err := m.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "2023-001", again.Rows[0].JobNumber)

	headers, err := m.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, 1, headers[0].Summary.RowsProcessed)
}

func TestMemory_GetRunNotFound(t *testing.T) {
	m := store.NewMemory()
	_, err := m.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, engine.ErrRunNotFound)
}
