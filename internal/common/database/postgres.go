// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zencalcs-assistant/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled connection; the pool dials lazily, so callers Ping before use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. one from sqlmock.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// EnsureSchema creates the report audit table when it does not exist.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	_, err := c.DB.ExecContext(ctx, reportRecordsDDL)
	if err != nil {
		return fmt.Errorf("create report_records: %w", err)
	}
	return nil
}

const reportRecordsDDL = `
CREATE TABLE IF NOT EXISTS report_records (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	filename         TEXT NOT NULL,
	calculation_type TEXT NOT NULL,
	title            TEXT NOT NULL,
	key_result       TEXT NOT NULL DEFAULT '',
	page_count       INTEGER NOT NULL,
	chart_failures   INTEGER NOT NULL DEFAULT 0,
	source           TEXT NOT NULL,
	object_key       TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL
)`
