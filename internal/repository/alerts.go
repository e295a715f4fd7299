package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
)

// AlertStore persists validation alerts.
type AlertStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAlertStore(db *sql.DB, logger *slog.Logger) *AlertStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertStore{db: db, logger: logger}
}

// SaveAll replaces the active alerts for the invoice with the given set
// in one transaction, so re-validation never accumulates stale alerts.
func (s *AlertStore) SaveAll(ctx context.Context, invoiceID uuid.UUID, alerts []entity.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_TX", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM alerts WHERE invoice_id = $1 AND status = $2`,
		invoiceID.String(), string(constants.AlertActive))
	if err != nil {
		return common.NewAppError("DB_WRITE", "clear active alerts", err)
	}

	for _, a := range alerts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alerts (id, invoice_id, type, message, severity, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID.String(), a.InvoiceID.String(), string(a.Type), a.Message,
			string(a.Severity), string(a.Status), a.CreatedAt)
		if err != nil {
			return common.NewAppError("DB_WRITE", "insert alert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.NewAppError("DB_TX", "commit transaction", err)
	}
	s.logger.Debug("alerts.saved", "invoice_id", invoiceID, "count", len(alerts))
	return nil
}

// ListActive returns every unresolved alert, newest first.
func (s *AlertStore) ListActive(ctx context.Context) ([]entity.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, type, message, severity, status, created_at
		FROM alerts WHERE status = $1 ORDER BY created_at DESC`,
		string(constants.AlertActive))
	if err != nil {
		return nil, common.NewAppError("DB_READ", "list active alerts", err)
	}
	defer func() { _ = rows.Close() }()
	return scanAlerts(rows)
}

// ListByInvoice returns the alerts for one invoice, newest first.
func (s *AlertStore) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]entity.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, type, message, severity, status, created_at
		FROM alerts WHERE invoice_id = $1 ORDER BY created_at DESC`, invoiceID.String())
	if err != nil {
		return nil, common.NewAppError("DB_READ", "list alerts", err)
	}
	defer func() { _ = rows.Close() }()
	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]entity.Alert, error) {
	var out []entity.Alert
	for rows.Next() {
		var (
			a                entity.Alert
			idStr, invStr    string
			typ, sev, status string
		)
		if err := rows.Scan(&idStr, &invStr, &typ, &a.Message, &sev, &status, &a.CreatedAt); err != nil {
			return nil, common.NewAppError("DB_READ", "scan alert", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, common.NewAppError("DB_READ", "alert id", err)
		}
		invID, err := uuid.Parse(invStr)
		if err != nil {
			return nil, common.NewAppError("DB_READ", "alert invoice id", err)
		}
		a.ID = id
		a.InvoiceID = invID
		a.Type = constants.AlertType(typ)
		a.Severity = constants.AlertSeverity(sev)
		a.Status = constants.AlertStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}
