package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemStore is an in-memory Store.
//
// Designed for tests, development and short-lived processes; history is
// lost when the process exits.
type MemStore struct {
	mu     sync.RWMutex
	runs   map[string][]StepRecord
	order  []string
	closed bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string][]StepRecord)}
}

// SaveStep appends a copy of rec.
func (m *MemStore) SaveStep(_ context.Context, rec StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Input = maps.Clone(rec.Input)
	rec.Output = maps.Clone(rec.Output)
	if _, ok := m.runs[rec.RunID]; !ok {
		m.order = append(m.order, rec.RunID)
	}
	m.runs[rec.RunID] = append(m.runs[rec.RunID], rec)
	return nil
}

// LoadRun returns the steps of runID ordered by step number.
func (m *MemStore) LoadRun(_ context.Context, runID string) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	steps, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	out := slices.Clone(steps)
	slices.SortStableFunc(out, func(a, b StepRecord) int { return a.Step - b.Step })
	return out, nil
}

// ListRuns summarizes every run in the order it was first recorded.
func (m *MemStore) ListRuns(_ context.Context) ([]RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]RunSummary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, summarize(id, m.runs[id]))
	}
	return out, nil
}

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func summarize(runID string, steps []StepRecord) RunSummary {
	s := RunSummary{RunID: runID, Steps: len(steps)}
	for i, rec := range steps {
		if rec.Status == StatusError {
			s.Errors++
		}
		if i == 0 || rec.CreatedAt.Before(s.StartedAt) {
			s.StartedAt = rec.CreatedAt
		}
		if rec.CreatedAt.After(s.EndedAt) {
			s.EndedAt = rec.CreatedAt
		}
	}
	return s
}
