// internal/repository/postgres/schema.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS context_entries (
		id             TEXT PRIMARY KEY,
		entry_type     TEXT NOT NULL,
		event_date     DATE,
		reason         TEXT NOT NULL DEFAULT '',
		product_ids    TEXT[] NOT NULL DEFAULT '{}',
		adjustments    JSONB NOT NULL DEFAULT '[]',
		detail         JSONB NOT NULL,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL,
		deactivated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_context_entries_products
		ON context_entries USING GIN (product_ids)`,
	`CREATE INDEX IF NOT EXISTS idx_context_entries_type
		ON context_entries (entry_type) WHERE active`,
	`CREATE TABLE IF NOT EXISTS sales_history (
		product_id TEXT NOT NULL,
		sale_date  DATE NOT NULL,
		quantity   DOUBLE PRECISION NOT NULL DEFAULT 0,
		revenue    DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, sale_date)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_history (
		product_id TEXT NOT NULL,
		stock_date DATE NOT NULL,
		quantity   DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, stock_date)
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id            BIGSERIAL PRIMARY KEY,
		source        TEXT NOT NULL,
		file_name     TEXT NOT NULL DEFAULT '',
		file_modified TIMESTAMPTZ,
		rows_ingested INTEGER NOT NULL DEFAULT 0,
		status        TEXT NOT NULL,
		error         TEXT NOT NULL DEFAULT '',
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the tables and indexes this package reads and
// writes. Every statement is idempotent, so boot-time calls are safe.
func (db *DB) EnsureSchema(ctx context.Context) error {
	return EnsureSchemaOn(ctx, db.DB.DB)
}

// EnsureSchemaOn applies the same schema over a plain database/sql
// connection, whatever driver opened it. The seeding CLI connects through
// pgx and shares the table definitions this way.
func EnsureSchemaOn(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}
