// Package postgres persists documents, contacts and classification
// rules through database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps the DDL. The advisory lock serializes it
// across concurrent api/worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	year INT NOT NULL,
	quarter INT NOT NULL,
	source_channel TEXT NOT NULL,
	status TEXT NOT NULL,
	storage_provider TEXT,
	file_url TEXT,
	raw_text TEXT,
	vendor TEXT,
	total_amount DOUBLE PRECISION,
	vat_amount DOUBLE PRECISION,
	invoice_number TEXT,
	invoice_direction TEXT,
	tax_category TEXT,
	contact_email TEXT,
	contact_phone TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);
CREATE INDEX IF NOT EXISTS idx_documents_user_period ON documents(user_id, year, quarter);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT,
	email TEXT,
	phone TEXT,
	source_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	last_document_date TIMESTAMPTZ,
	notes TEXT,
	ai_summary TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_user ON contacts(user_id);

CREATE TABLE IF NOT EXISTS rules (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	position INT NOT NULL,
	condition_type TEXT NOT NULL,
	condition_value TEXT NOT NULL,
	invoice_direction TEXT NOT NULL,
	result_category TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_user_position ON rules(user_id, position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
