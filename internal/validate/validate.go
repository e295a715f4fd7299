package validate

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoicescan/constants"
	"invoicescan/internal/entity"
	"invoicescan/internal/reconcile"
)

// Config holds the anomaly thresholds as fractions of the historical
// unit price.
type Config struct {
	PriceDeviationWarn float64 // medium severity at or above; default 0.05
	PriceDeviationHigh float64 // high severity at or above; default 0.20
}

// PriorInvoice is the slice of history the duplicate check needs.
type PriorInvoice struct {
	ID            uuid.UUID
	InvoiceNumber string
}

// History is a read-only snapshot of the vendor's past activity. The
// engine itself is stateless: the same invoice and history always yield
// the same alerts.
type History struct {
	Invoices []PriorInvoice
	// UnitPrices maps the item key to the most recent unit price in
	// cents seen for that item from this vendor.
	UnitPrices map[string]int64
}

// Engine checks a reconciled invoice against vendor history.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.PriceDeviationWarn <= 0 {
		cfg.PriceDeviationWarn = 0.05
	}
	if cfg.PriceDeviationHigh <= 0 {
		cfg.PriceDeviationHigh = 0.20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Validate returns the alerts the invoice raises: duplicate invoice
// numbers first, then price deviations in item-key order.
func (e *Engine) Validate(inv entity.Invoice, hist History) []entity.Alert {
	var alerts []entity.Alert
	alerts = append(alerts, e.checkDuplicates(inv, hist)...)
	alerts = append(alerts, e.checkPriceDeviations(inv, hist)...)

	if len(alerts) > 0 {
		e.logger.Info("validate.alerts",
			"invoice_id", inv.ID,
			"invoice_number", inv.InvoiceNumber,
			"count", len(alerts))
	}
	return alerts
}

func (e *Engine) checkDuplicates(inv entity.Invoice, hist History) []entity.Alert {
	number := normalizeInvoiceNumber(inv.InvoiceNumber)
	if number == "" {
		return nil
	}
	var alerts []entity.Alert
	for _, prior := range hist.Invoices {
		if prior.ID == inv.ID {
			continue
		}
		if normalizeInvoiceNumber(prior.InvoiceNumber) != number {
			continue
		}
		alerts = append(alerts, newAlert(inv.ID, constants.AlertDuplicateInvoice, constants.SeverityHigh,
			fmt.Sprintf("invoice number %q already recorded by invoice %s", inv.InvoiceNumber, prior.ID)))
	}
	return alerts
}

func (e *Engine) checkPriceDeviations(inv entity.Invoice, hist History) []entity.Alert {
	if len(hist.UnitPrices) == 0 {
		return nil
	}

	type finding struct {
		key   string
		alert entity.Alert
	}
	var findings []finding
	for _, it := range inv.Items {
		if it.UnitPriceCents == nil {
			continue
		}
		key := ItemKey(it)
		if key == "" {
			continue
		}
		prior, ok := hist.UnitPrices[key]
		if !ok || prior <= 0 {
			continue
		}
		ratio := math.Abs(float64(*it.UnitPriceCents-prior)) / float64(prior)
		if ratio < e.cfg.PriceDeviationWarn {
			continue
		}
		severity := constants.SeverityMedium
		if ratio >= e.cfg.PriceDeviationHigh {
			severity = constants.SeverityHigh
		}
		findings = append(findings, finding{key: key, alert: newAlert(
			inv.ID, constants.AlertPriceDeviation, severity,
			fmt.Sprintf("unit price for %q moved %.1f%% (%s -> %s)",
				key, ratio*100,
				reconcile.FormatCents(prior),
				reconcile.FormatCents(*it.UnitPriceCents)),
		)})
	}

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].key < findings[j].key })
	alerts := make([]entity.Alert, 0, len(findings))
	for _, f := range findings {
		alerts = append(alerts, f.alert)
	}
	return alerts
}

var reSpaceRuns = regexp.MustCompile(`\s+`)

// ItemKey identifies a line item across invoices: the SKU when present,
// otherwise the normalized description.
func ItemKey(it entity.LineItem) string {
	if sku := strings.TrimSpace(it.SKU); sku != "" {
		return strings.ToUpper(sku)
	}
	desc := strings.ToLower(strings.TrimSpace(it.Description))
	return reSpaceRuns.ReplaceAllString(desc, " ")
}

func normalizeInvoiceNumber(n string) string {
	return strings.ToLower(strings.TrimSpace(n))
}

func newAlert(invoiceID uuid.UUID, typ constants.AlertType, sev constants.AlertSeverity, msg string) entity.Alert {
	return entity.Alert{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Type:      typ,
		Message:   msg,
		Severity:  sev,
		Status:    constants.AlertActive,
		CreatedAt: time.Now().UTC(),
	}
}
