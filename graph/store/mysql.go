package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// NewMySQLStore connects to MySQL using dsn and ensures the schema exists.
//
// DSN format: user:password@tcp(host:port)/dbname
func NewMySQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS masf_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(512) NOT NULL,
			status VARCHAR(16) NOT NULL,
			input LONGTEXT,
			output LONGTEXT,
			error TEXT,
			duration_ns BIGINT NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_masf_steps_run (run_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create masf_steps: %w", err)
	}

	return &SQLStore{db: db}, nil
}
