package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runStoreContract exercises the behavior every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	t.Run("load unknown run", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.LoadRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("steps come back ordered by step", func(t *testing.T) {
		s := newStore(t)
		for _, step := range []int{2, 1, 3} {
			rec := StepRecord{
				RunID:     "run-1",
				Step:      step,
				NodeID:    "root/a",
				Status:    StatusSuccess,
				Input:     map[string]any{"x": "in"},
				Output:    map[string]any{"x": "out"},
				Duration:  time.Duration(step) * time.Millisecond,
				CreatedAt: base.Add(time.Duration(step) * time.Second),
			}
			if err := s.SaveStep(ctx, rec); err != nil {
				t.Fatalf("SaveStep: %v", err)
			}
		}

		steps, err := s.LoadRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("LoadRun: %v", err)
		}
		if len(steps) != 3 {
			t.Fatalf("expected 3 steps, got %d", len(steps))
		}
		for i, rec := range steps {
			if rec.Step != i+1 {
				t.Errorf("expected step %d at %d, got %d", i+1, i, rec.Step)
			}
			if rec.RunID != "run-1" || rec.NodeID != "root/a" {
				t.Errorf("unexpected identity %q %q", rec.RunID, rec.NodeID)
			}
			if rec.Output["x"] != "out" || rec.Input["x"] != "in" {
				t.Errorf("unexpected payload in=%v out=%v", rec.Input, rec.Output)
			}
			if rec.Duration != time.Duration(rec.Step)*time.Millisecond {
				t.Errorf("expected duration %v, got %v", time.Duration(rec.Step)*time.Millisecond, rec.Duration)
			}
		}
	})

	t.Run("error steps keep their message", func(t *testing.T) {
		s := newStore(t)
		err := s.SaveStep(ctx, StepRecord{RunID: "r", Step: 1, NodeID: "root/b", Status: StatusError, Error: "boom", CreatedAt: base})
		if err != nil {
			t.Fatalf("SaveStep: %v", err)
		}
		steps, err := s.LoadRun(ctx, "r")
		if err != nil {
			t.Fatalf("LoadRun: %v", err)
		}
		if steps[0].Error != "boom" || steps[0].Status != StatusError {
			t.Errorf("unexpected record %+v", steps[0])
		}
		if steps[0].Output != nil {
			t.Errorf("expected nil output, got %v", steps[0].Output)
		}
	})

	t.Run("list runs", func(t *testing.T) {
		s := newStore(t)
		recs := []StepRecord{
			{RunID: "first", Step: 1, NodeID: "a", Status: StatusSuccess, CreatedAt: base},
			{RunID: "first", Step: 2, NodeID: "b", Status: StatusError, Error: "x", CreatedAt: base.Add(time.Second)},
			{RunID: "second", Step: 1, NodeID: "a", Status: StatusSuccess, CreatedAt: base.Add(time.Minute)},
		}
		for _, rec := range recs {
			if err := s.SaveStep(ctx, rec); err != nil {
				t.Fatalf("SaveStep: %v", err)
			}
		}
		runs, err := s.ListRuns(ctx)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].RunID != "first" || runs[0].Steps != 2 || runs[0].Errors != 1 {
			t.Errorf("unexpected first summary %+v", runs[0])
		}
		if !runs[0].StartedAt.Equal(base) || !runs[0].EndedAt.Equal(base.Add(time.Second)) {
			t.Errorf("unexpected time range %v..%v", runs[0].StartedAt, runs[0].EndedAt)
		}
		if runs[1].RunID != "second" || runs[1].Steps != 1 {
			t.Errorf("unexpected second summary %+v", runs[1])
		}
	})

	t.Run("closed store rejects operations", func(t *testing.T) {
		s := newStore(t)
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := s.SaveStep(ctx, StepRecord{RunID: "r"}); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if _, err := s.ListRuns(ctx); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}
