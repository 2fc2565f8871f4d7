// Package store provides RunStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	runs map[string]engine.AllocationRun
}

func NewMemory() *Memory {
	return &Memory{runs: make(map[string]engine.AllocationRun)}
}

// SaveRun stores a copy of the run. Saved runs are immutable.
func (m *Memory) SaveRun(_ context.Context, run engine.AllocationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.Rows = append([]engine.AllocationRow(nil), run.Rows...)
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*engine.AllocationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, engine.ErrRunNotFound
	}
	out := run
	out.Rows = append([]engine.AllocationRow(nil), run.Rows...)
	return &out, nil
}

func (m *Memory) ListRuns(_ context.Context) ([]engine.RunHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	headers := make([]engine.RunHeader, 0, len(m.runs))
	for _, run := range m.runs {
		headers = append(headers, engine.RunHeader{
			ID:        run.ID,
			CreatedAt: run.CreatedAt,
			Summary:   run.Summary,
		})
	}
	sort.Slice(headers, func(i, j int) bool {
		if !headers[i].CreatedAt.Equal(headers[j].CreatedAt) {
			return headers[i].CreatedAt.After(headers[j].CreatedAt)
		}
		return headers[i].ID < headers[j].ID
	})
	return headers, nil
}
