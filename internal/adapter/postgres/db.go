package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS harvest_runs (
		id          UUID PRIMARY KEY,
		state       TEXT NOT NULL,
		started_at  TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		error       TEXT NOT NULL DEFAULT '',
		records     INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS applicants (
		run_id              UUID NOT NULL REFERENCES harvest_runs(id) ON DELETE CASCADE,
		serial_number       INTEGER NOT NULL,
		name                TEXT NOT NULL,
		location            TEXT NOT NULL,
		applied_ago         TEXT NOT NULL,
		resume_url          TEXT NOT NULL,
		years_of_experience TEXT NOT NULL,
		current_role        TEXT NOT NULL,
		current_company     TEXT NOT NULL,
		experience_string   TEXT NOT NULL,
		download_status     TEXT NOT NULL,
		collected_at        TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, serial_number)
	);`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
