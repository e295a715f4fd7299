package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// bootstrap DDL, portable across postgres and sqlite. Authoritative
// schema definitions live in db/ent/schema; this mirrors them for
// deployments that do not run migrations out of band.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS vendors (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id             TEXT PRIMARY KEY,
		vendor_id      TEXT NOT NULL REFERENCES vendors(id),
		vendor_name    TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL DEFAULT '',
		invoice_date   TIMESTAMP,
		due_date       TIMESTAMP,
		subtotal_cents BIGINT,
		tax_cents      BIGINT,
		total_cents    BIGINT,
		currency_code  TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		error_reason   TEXT NOT NULL DEFAULT '',
		confidence     REAL NOT NULL DEFAULT 0,
		raw_text       TEXT NOT NULL DEFAULT '',
		parsed_payload TEXT,
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_vendor_status ON invoices (vendor_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices (invoice_number)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id               TEXT PRIMARY KEY,
		invoice_id       TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		position         INTEGER NOT NULL,
		sku              TEXT NOT NULL DEFAULT '',
		description      TEXT NOT NULL DEFAULT '',
		quantity         REAL,
		unit_price_cents BIGINT,
		line_total_cents BIGINT,
		confidence       REAL NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice ON invoice_items (invoice_id)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id         TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		type       TEXT NOT NULL,
		message    TEXT NOT NULL,
		severity   TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_invoice ON alerts (invoice_id)`,
}

// Migrate applies the bootstrap schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Info("applying schema migrations", "statements", len(migrations))
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	logger.Info("schema migrations applied")
	return nil
}
