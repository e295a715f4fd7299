package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
	"invoicescan/internal/llm"
	"invoicescan/internal/metrics"
	"invoicescan/internal/ocr"
	"invoicescan/internal/reconcile"
	"invoicescan/internal/validate"
)

// TextExtractor is the OCR stage the runner depends on.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.Document) (ocr.Result, error)
}

// FieldExtractor is the structured-extraction stage.
type FieldExtractor interface {
	Extract(ctx context.Context, rawText string) (llm.Candidate, error)
}

// InvoiceSaver persists invoice records.
type InvoiceSaver interface {
	Save(ctx context.Context, inv *entity.Invoice) error
}

// AlertSaver persists validation alerts.
type AlertSaver interface {
	SaveAll(ctx context.Context, invoiceID uuid.UUID, alerts []entity.Alert) error
}

// HistorySource builds validation snapshots.
type HistorySource interface {
	Snapshot(ctx context.Context, vendorID, exclude uuid.UUID) (validate.History, error)
}

// Runner drives one document through the full pipeline:
// uploaded -> processing -> parsed or error. Concurrent calls for the
// same document ID coalesce onto a single execution, so at most one
// terminal record is ever written per attempt.
type Runner struct {
	text      TextExtractor
	fields    FieldExtractor
	validator *validate.Engine
	invoices  InvoiceSaver
	alerts    AlertSaver
	history   HistorySource
	metrics   *metrics.Metrics
	logger    *slog.Logger

	group singleflight.Group
}

func NewRunner(
	text TextExtractor,
	fields FieldExtractor,
	validator *validate.Engine,
	invoices InvoiceSaver,
	alerts AlertSaver,
	history HistorySource,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Runner{
		text:      text,
		fields:    fields,
		validator: validator,
		invoices:  invoices,
		alerts:    alerts,
		history:   history,
		metrics:   m,
		logger:    logger,
	}
}

// Accept records the document's arrival before any processing starts.
func (r *Runner) Accept(ctx context.Context, doc entity.Document, vendorID uuid.UUID) (*entity.Invoice, error) {
	inv := &entity.Invoice{
		ID:       doc.ID,
		VendorID: vendorID,
		Status:   constants.StatusUploaded,
	}
	if err := r.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	r.logger.Info("pipeline.accepted", "invoice_id", doc.ID, "media_type", doc.MediaType, "bytes", len(doc.Bytes))
	return inv, nil
}

// Run parses the document end to end and returns the terminal record.
// Calls that arrive while the same document is already being parsed
// share that execution's outcome instead of starting a second one.
func (r *Runner) Run(ctx context.Context, doc entity.Document, vendorID uuid.UUID) (*entity.Invoice, error) {
	v, err, shared := r.group.Do(doc.ID.String(), func() (any, error) {
		return r.run(ctx, doc, vendorID)
	})
	if shared {
		r.logger.Debug("pipeline.coalesced", "invoice_id", doc.ID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*entity.Invoice), nil
}

func (r *Runner) run(ctx context.Context, doc entity.Document, vendorID uuid.UUID) (*entity.Invoice, error) {
	start := time.Now()
	defer func() { r.metrics.ParseDuration.Observe(time.Since(start).Seconds()) }()

	inv := &entity.Invoice{
		ID:       doc.ID,
		VendorID: vendorID,
		Status:   constants.StatusProcessing,
	}
	if err := r.invoices.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	text, err := r.text.Extract(ctx, doc)
	if err != nil {
		return r.fail(ctx, inv, err)
	}
	inv.RawText = text.Text

	cand, err := r.fields.Extract(ctx, text.Text)
	if err != nil {
		return r.fail(ctx, inv, err)
	}

	rec, err := reconcile.Reconcile(cand, text.Confidence, r.logger)
	if err != nil {
		return r.fail(ctx, inv, err)
	}
	mergeReconciled(inv, rec)

	if !inv.Parsed() {
		return r.fail(ctx, inv, common.Failure(constants.ReasonMissingRequiredField,
			"no usable total after reconciliation", nil))
	}

	// single write carries the terminal status and the full record
	inv.Status = constants.StatusParsed
	inv.ErrorReason = ""
	if err := r.invoices.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("persist parsed invoice: %w", err)
	}
	r.metrics.ParseOutcomes.WithLabelValues(string(constants.StatusParsed)).Inc()

	r.validate(ctx, inv)

	r.logger.Info("pipeline.parsed",
		"invoice_id", inv.ID,
		"vendor_id", inv.VendorID,
		"invoice_number", inv.InvoiceNumber,
		"confidence", inv.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds())
	return inv, nil
}

// validate runs the anomaly checks and persists any alerts. Alert
// persistence failures are logged, not fatal: the invoice itself is
// already terminal.
func (r *Runner) validate(ctx context.Context, inv *entity.Invoice) {
	hist, err := r.history.Snapshot(ctx, inv.VendorID, inv.ID)
	if err != nil {
		r.logger.Error("pipeline.history_failed", "invoice_id", inv.ID, "error", err)
		return
	}
	alerts := r.validator.Validate(*inv, hist)
	if err := r.alerts.SaveAll(ctx, inv.ID, alerts); err != nil {
		r.logger.Error("pipeline.alerts_failed", "invoice_id", inv.ID, "error", err)
		return
	}
	for _, a := range alerts {
		r.metrics.Alerts.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}
}

// fail writes the terminal error record in one save. Errors that do not
// carry a failure reason are infrastructure trouble: the record is left
// in processing for a later retry rather than mislabeled.
func (r *Runner) fail(ctx context.Context, inv *entity.Invoice, cause error) (*entity.Invoice, error) {
	reason := common.FailureReason(cause)
	if reason == "" {
		return nil, cause
	}

	inv.Status = constants.StatusError
	inv.ErrorReason = string(reason)
	if err := r.invoices.Save(ctx, inv); err != nil {
		r.logger.Error("pipeline.fail_persist", "invoice_id", inv.ID, "error", err)
		return nil, fmt.Errorf("persist failed invoice: %w", err)
	}

	r.metrics.ParseOutcomes.WithLabelValues(string(constants.StatusError)).Inc()
	r.metrics.ParseFailures.WithLabelValues(string(reason)).Inc()
	r.logger.Warn("pipeline.failed",
		"invoice_id", inv.ID, "reason", reason, "error", cause)
	return inv, cause
}

func mergeReconciled(inv *entity.Invoice, rec entity.Invoice) {
	inv.VendorName = rec.VendorName
	inv.InvoiceNumber = rec.InvoiceNumber
	inv.InvoiceDate = rec.InvoiceDate
	inv.DueDate = rec.DueDate
	inv.Items = rec.Items
	inv.SubtotalCents = rec.SubtotalCents
	inv.TaxCents = rec.TaxCents
	inv.TotalCents = rec.TotalCents
	inv.CurrencyCode = rec.CurrencyCode
	inv.Confidence = rec.Confidence
	inv.ParsedPayload = rec.ParsedPayload
}
