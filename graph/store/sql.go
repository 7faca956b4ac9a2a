package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// SQLStore is a Store backed by database/sql. Use NewSQLiteStore or
// NewMySQLStore to create one; both share the masf_steps schema.
type SQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

func (s *SQLStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// SaveStep inserts rec.
func (s *SQLStore) SaveStep(ctx context.Context, rec StepRecord) error {
	if err := s.check(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	input, err := encodeMessage(rec.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	output, err := encodeMessage(rec.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	const query = `
		INSERT INTO masf_steps (run_id, step, node_id, status, input, output, error, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		rec.RunID, rec.Step, rec.NodeID, rec.Status, input, output, rec.Error,
		rec.Duration.Nanoseconds(), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadRun returns the steps of runID ordered by step number.
func (s *SQLStore) LoadRun(ctx context.Context, runID string) ([]StepRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT step, node_id, status, input, output, error, duration_ns, created_at
		FROM masf_steps
		WHERE run_id = ?
		ORDER BY step ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var (
			rec           StepRecord
			input, output sql.NullString
			errText       sql.NullString
			durationNs    int64
			createdNs     int64
		)
		if err := rows.Scan(&rec.Step, &rec.NodeID, &rec.Status, &input, &output, &errText, &durationNs, &createdNs); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		rec.RunID = runID
		rec.Error = errText.String
		rec.Duration = time.Duration(durationNs)
		rec.CreatedAt = time.Unix(0, createdNs)
		if rec.Input, err = decodeMessage(input); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input: %w", err)
		}
		if rec.Output, err = decodeMessage(output); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// ListRuns summarizes every recorded run, oldest first.
func (s *SQLStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT run_id, COUNT(*), SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END),
			MIN(created_at), MAX(created_at)
		FROM masf_steps
		GROUP BY run_id
		ORDER BY MIN(created_at) ASC, run_id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var (
			sum            RunSummary
			errs           int64
			startNs, endNs int64
		)
		if err := rows.Scan(&sum.RunID, &sum.Steps, &errs, &startNs, &endNs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.Errors = int(errs)
		sum.StartedAt = time.Unix(0, startNs)
		sum.EndedAt = time.Unix(0, endNs)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// encodeMessage marshals m to JSON. Values JSON cannot represent are
// stored as their fmt representation.
func encodeMessage(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		printable := make(map[string]string, len(m))
		for k, v := range m {
			printable[k] = fmt.Sprintf("%v", v)
		}
		if data, err = json.Marshal(printable); err != nil {
			return sql.NullString{}, err
		}
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMessage(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
