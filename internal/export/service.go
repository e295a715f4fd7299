package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"invoicescan/internal/entity"
	"invoicescan/internal/reconcile"
)

// InvoiceLister is the slice of the invoice store the exporter needs.
type InvoiceLister interface {
	List(ctx context.Context, vendorID *uuid.UUID, from, to *time.Time) ([]entity.Invoice, error)
}

// AlertLister supplies the unresolved alerts for the alerts sheet.
type AlertLister interface {
	ListActive(ctx context.Context) ([]entity.Alert, error)
}

// Service produces XLSX bytes summarizing parsed invoices and open
// alerts.
type Service struct {
	invoices InvoiceLister
	alerts   AlertLister
	logger   *slog.Logger
}

func NewService(invoices InvoiceLister, alerts AlertLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, alerts: alerts, logger: logger}
}

// ExportXLSX returns a workbook with an Invoices sheet and an Alerts
// sheet for the given vendor and date window. A nil vendor exports all
// vendors; if only from is provided the window runs through today.
func (s *Service) ExportXLSX(ctx context.Context, vendorID *uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		now := time.Now().UTC()
		t := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	invoices, err := s.invoices.List(ctx, vendorID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	f := excelize.NewFile()
	if err := s.writeInvoicesSheet(f, invoices); err != nil {
		return nil, err
	}
	if err := s.writeAlertsSheet(f, alerts); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx",
		"invoices", len(invoices),
		"alerts", len(alerts),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func (s *Service) writeInvoicesSheet(f *excelize.File, invoices []entity.Invoice) error {
	const sheet = "Invoices"
	if err := renameDefaultSheet(f, sheet); err != nil {
		return err
	}

	headers := []string{
		"Invoice Number", "Vendor", "Invoice Date", "Due Date",
		"Subtotal", "Tax", "Total", "Currency",
		"Status", "Error Reason", "Confidence",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, inv := range invoices {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, inv.InvoiceNumber)
		write(2, inv.VendorName)
		write(3, formatDate(inv.InvoiceDate))
		write(4, formatDate(inv.DueDate))
		write(5, formatMoney(inv.SubtotalCents))
		write(6, formatMoney(inv.TaxCents))
		write(7, formatMoney(inv.TotalCents))
		write(8, inv.CurrencyCode)
		write(9, string(inv.Status))
		write(10, inv.ErrorReason)
		write(11, fmt.Sprintf("%.2f", inv.Confidence))
	}
	return nil
}

func (s *Service) writeAlertsSheet(f *excelize.File, alerts []entity.Alert) error {
	const sheet = "Alerts"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Invoice ID", "Type", "Severity", "Message", "Raised At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, a := range alerts {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, a.InvoiceID.String())
		write(2, string(a.Type))
		write(3, string(a.Severity))
		write(4, a.Message)
		write(5, a.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func renameDefaultSheet(f *excelize.File, name string) error {
	def := f.GetSheetName(f.GetActiveSheetIndex())
	if def == name {
		return nil
	}
	return f.SetSheetName(def, name)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatMoney(cents *int64) string {
	if cents == nil {
		return ""
	}
	return reconcile.FormatCents(*cents)
}
