package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
)

// InvoiceStore persists invoices and their line items.
type InvoiceStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInvoiceStore(db *sql.DB, logger *slog.Logger) *InvoiceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceStore{db: db, logger: logger}
}

// Save upserts the invoice and replaces its line items in one
// transaction, so a reader never sees a half-written record.
func (s *InvoiceStore) Save(ctx context.Context, inv *entity.Invoice) error {
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_TX", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (
			id, vendor_id, vendor_name, invoice_number, invoice_date, due_date,
			subtotal_cents, tax_cents, total_cents, currency_code,
			status, error_reason, confidence, raw_text, parsed_payload,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			vendor_id = excluded.vendor_id,
			vendor_name = excluded.vendor_name,
			invoice_number = excluded.invoice_number,
			invoice_date = excluded.invoice_date,
			due_date = excluded.due_date,
			subtotal_cents = excluded.subtotal_cents,
			tax_cents = excluded.tax_cents,
			total_cents = excluded.total_cents,
			currency_code = excluded.currency_code,
			status = excluded.status,
			error_reason = excluded.error_reason,
			confidence = excluded.confidence,
			raw_text = excluded.raw_text,
			parsed_payload = excluded.parsed_payload,
			updated_at = excluded.updated_at`,
		inv.ID.String(), inv.VendorID.String(), inv.VendorName, inv.InvoiceNumber,
		inv.InvoiceDate, inv.DueDate,
		inv.SubtotalCents, inv.TaxCents, inv.TotalCents, inv.CurrencyCode,
		string(inv.Status), inv.ErrorReason, inv.Confidence, inv.RawText,
		nullableBytes(inv.ParsedPayload), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return common.NewAppError("DB_WRITE", "upsert invoice", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID.String()); err != nil {
		return common.NewAppError("DB_WRITE", "clear invoice items", err)
	}
	for i, it := range inv.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_items (
				id, invoice_id, position, sku, description,
				quantity, unit_price_cents, line_total_cents, confidence
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New().String(), inv.ID.String(), i, it.SKU, it.Description,
			it.Quantity, it.UnitPriceCents, it.LineTotalCents, it.Confidence,
		)
		if err != nil {
			return common.NewAppError("DB_WRITE", fmt.Sprintf("insert invoice item %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.NewAppError("DB_TX", "commit transaction", err)
	}

	s.logger.Debug("invoice.saved",
		"invoice_id", inv.ID, "status", inv.Status, "items", len(inv.Items))
	return nil
}

// Get loads an invoice and its line items.
func (s *InvoiceStore) Get(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vendor_id, vendor_name, invoice_number, invoice_date, due_date,
		       subtotal_cents, tax_cents, total_cents, currency_code,
		       status, error_reason, confidence, raw_text, parsed_payload,
		       created_at, updated_at
		FROM invoices WHERE id = $1`, id.String())

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.NewAppError("DB_READ", "load invoice", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, description, quantity, unit_price_cents, line_total_cents, confidence
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, id.String())
	if err != nil {
		return nil, common.NewAppError("DB_READ", "load invoice items", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.SKU, &it.Description, &it.Quantity,
			&it.UnitPriceCents, &it.LineTotalCents, &it.Confidence); err != nil {
			return nil, common.NewAppError("DB_READ", "scan invoice item", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_READ", "iterate invoice items", err)
	}
	return inv, nil
}

// List returns invoices, optionally filtered to one vendor and a
// created-at window, newest first. Line items are not loaded.
func (s *InvoiceStore) List(ctx context.Context, vendorID *uuid.UUID, from, to *time.Time) ([]entity.Invoice, error) {
	q := `
		SELECT id, vendor_id, vendor_name, invoice_number, invoice_date, due_date,
		       subtotal_cents, tax_cents, total_cents, currency_code,
		       status, error_reason, confidence, raw_text, parsed_payload,
		       created_at, updated_at
		FROM invoices WHERE 1=1`
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if vendorID != nil {
		q += " AND vendor_id = " + arg(vendorID.String())
	}
	if from != nil {
		q += " AND created_at >= " + arg(*from)
	}
	if to != nil {
		q += " AND created_at <= " + arg(*to)
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, common.NewAppError("DB_READ", "list invoices", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, common.NewAppError("DB_READ", "scan invoice", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		inv              entity.Invoice
		idStr, vendorStr string
		status           string
		payload          sql.Null[[]byte]
	)
	err := row.Scan(&idStr, &vendorStr, &inv.VendorName, &inv.InvoiceNumber,
		&inv.InvoiceDate, &inv.DueDate,
		&inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents, &inv.CurrencyCode,
		&status, &inv.ErrorReason, &inv.Confidence, &inv.RawText, &payload,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if inv.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invoice id: %w", err)
	}
	if inv.VendorID, err = uuid.Parse(vendorStr); err != nil {
		return nil, fmt.Errorf("vendor id: %w", err)
	}
	inv.Status = constants.InvoiceStatus(status)
	if payload.Valid {
		inv.ParsedPayload = payload.V
	}
	return &inv, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
