// Package store persists the execution history of graph runs.
//
// A run is one root invocation. Every node activation inside it, nested
// composites included, is recorded as a StepRecord keyed by run ID and step
// number. Stores are written by graph.WithRecorder and read back by the CLI
// and by tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run has no recorded steps.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("store is closed")

// Step outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StepRecord describes one node activation.
type StepRecord struct {
	// RunID identifies the root invocation.
	RunID string

	// Step is the activation's position within the run (1-indexed).
	Step int

	// NodeID is the slash separated node path, e.g. "root/review/critic".
	NodeID string

	// Status is StatusSuccess or StatusError.
	Status string

	// Input is the aggregated message the node was forwarded.
	Input map[string]any

	// Output is the message the node produced. Nil on error.
	Output map[string]any

	// Error holds the error text when Status is StatusError.
	Error string

	// Duration is how long the forward took.
	Duration time.Duration

	// CreatedAt is when the record was produced.
	CreatedAt time.Time
}

// RunSummary aggregates the steps of one run.
type RunSummary struct {
	RunID     string
	Steps     int
	Errors    int
	StartedAt time.Time
	EndedAt   time.Time
}

// Store persists step records.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveStep appends rec to its run's history.
	SaveStep(ctx context.Context, rec StepRecord) error

	// LoadRun returns every step of runID ordered by step number, or
	// ErrNotFound when none exist.
	LoadRun(ctx context.Context, runID string) ([]StepRecord, error)

	// ListRuns summarizes every recorded run, oldest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)

	// Close releases the store's resources.
	Close() error
}
