package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the customers and import_jobs tables if they do
// not exist. Called once at startup from the composition root.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			customer_id VARCHAR(100) NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			phone1 TEXT NOT NULL DEFAULT '',
			phone2 TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			about_customer TEXT NOT NULL DEFAULT '',
			subscription_date TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_updated_at ON customers (updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS import_jobs (
			id UUID PRIMARY KEY,
			file_path VARCHAR(500) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'RUNNING',
			bytes_read BIGINT NOT NULL DEFAULT 0,
			rows_processed BIGINT NOT NULL DEFAULT 0,
			rows_inserted BIGINT NOT NULL DEFAULT 0,
			last_row_hash VARCHAR(64) NOT NULL DEFAULT '',
			error_message TEXT,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_jobs_status ON import_jobs (status)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
