package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
	"invoicescan/internal/validate"
)

// VendorHistory builds the read-only snapshots the validation engine
// consumes.
type VendorHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewVendorHistory(db *sql.DB, logger *slog.Logger) *VendorHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &VendorHistory{db: db, logger: logger}
}

// Snapshot collects the vendor's parsed invoices and, per item key, the
// unit price from the most recently parsed invoice that priced it. The
// invoice being validated is excluded so it never competes with itself.
func (h *VendorHistory) Snapshot(ctx context.Context, vendorID, exclude uuid.UUID) (validate.History, error) {
	hist := validate.History{UnitPrices: map[string]int64{}}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, invoice_number
		FROM invoices
		WHERE vendor_id = $1 AND status = $2 AND id <> $3`,
		vendorID.String(), string(constants.StatusParsed), exclude.String())
	if err != nil {
		return hist, common.NewAppError("DB_READ", "load vendor invoices", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			idStr  string
			number string
		)
		if err := rows.Scan(&idStr, &number); err != nil {
			return hist, common.NewAppError("DB_READ", "scan vendor invoice", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return hist, common.NewAppError("DB_READ", "vendor invoice id", err)
		}
		hist.Invoices = append(hist.Invoices, validate.PriorInvoice{ID: id, InvoiceNumber: number})
	}
	if err := rows.Err(); err != nil {
		return hist, common.NewAppError("DB_READ", "iterate vendor invoices", err)
	}

	// newest first; the first price seen per key wins
	prices, err := h.db.QueryContext(ctx, `
		SELECT it.sku, it.description, it.unit_price_cents
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		WHERE i.vendor_id = $1 AND i.status = $2 AND i.id <> $3
		  AND it.unit_price_cents IS NOT NULL
		ORDER BY i.updated_at DESC, it.position ASC`,
		vendorID.String(), string(constants.StatusParsed), exclude.String())
	if err != nil {
		return hist, common.NewAppError("DB_READ", "load vendor item prices", err)
	}
	defer func() { _ = prices.Close() }()

	for prices.Next() {
		var (
			sku, desc string
			cents     int64
		)
		if err := prices.Scan(&sku, &desc, &cents); err != nil {
			return hist, common.NewAppError("DB_READ", "scan vendor item price", err)
		}
		key := validate.ItemKey(entity.LineItem{SKU: sku, Description: desc})
		if key == "" {
			continue
		}
		if _, seen := hist.UnitPrices[key]; !seen {
			hist.UnitPrices[key] = cents
		}
	}
	if err := prices.Err(); err != nil {
		return hist, common.NewAppError("DB_READ", "iterate vendor item prices", err)
	}

	h.logger.Debug("history.snapshot",
		"vendor_id", vendorID,
		"invoices", len(hist.Invoices),
		"priced_items", len(hist.UnitPrices))
	return hist, nil
}
