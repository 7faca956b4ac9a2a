package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// NewSQLiteStore opens (or creates) a SQLite database at path and ensures
// the schema exists. Use ":memory:" for a throwaway database.
//
// The connection pool is limited to one connection: SQLite has a single
// writer, and an in-memory database exists per connection.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS masf_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			status TEXT NOT NULL,
			input TEXT,
			output TEXT,
			error TEXT,
			duration_ns INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create masf_steps: %w", err)
	}
	const index = `CREATE INDEX IF NOT EXISTS idx_masf_steps_run ON masf_steps (run_id, step)`
	if _, err := db.ExecContext(ctx, index); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLStore{db: db}, nil
}
