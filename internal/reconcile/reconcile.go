package reconcile

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
	"invoicescan/internal/llm"
)

// mismatchPenalty is subtracted from the blended confidence for every
// cross-check that fails.
const mismatchPenalty = 0.05

// Reconcile normalizes an extraction candidate into the persisted shape:
// dates to UTC midnight, money to fixed-point cents, currency upper-case,
// with arithmetic cross-checks depressing confidence on disagreement.
// Vendor name and invoice number are required; their absence fails the
// attempt with MissingRequiredField.
func Reconcile(cand llm.Candidate, engineConfidence float32, logger *slog.Logger) (entity.Invoice, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := cand.Fields
	inv := entity.Invoice{
		VendorName:    strings.TrimSpace(f.VendorName),
		InvoiceNumber: strings.TrimSpace(f.InvoiceNumber),
		CurrencyCode:  normalizeCurrency(f.CurrencyCode),
		ParsedPayload: cand.Raw,
	}

	var mismatches []string
	note := func(format string, args ...any) {
		mismatches = append(mismatches, fmt.Sprintf(format, args...))
	}

	if inv.VendorName == "" || inv.InvoiceNumber == "" {
		return inv, common.Failure(constants.ReasonMissingRequiredField,
			"vendor name and invoice number are required", nil)
	}

	if f.InvoiceDate != "" {
		if t, ok := ParseDate(f.InvoiceDate); ok {
			inv.InvoiceDate = &t
		} else {
			note("invoice_date %q unparseable", f.InvoiceDate)
		}
	}
	if f.DueDate != "" {
		if t, ok := ParseDate(f.DueDate); ok {
			inv.DueDate = &t
		} else {
			note("due_date %q unparseable", f.DueDate)
		}
	}
	if inv.InvoiceDate != nil && inv.DueDate != nil && inv.DueDate.Before(*inv.InvoiceDate) {
		note("due_date precedes invoice_date")
	}

	inv.SubtotalCents = parseMoneyField("subtotal", f.Subtotal, note)
	inv.TaxCents = parseMoneyField("tax", f.Tax, note)
	inv.TotalCents = parseMoneyField("total", f.Total, note)

	inv.Items = reconcileItems(f.Items, note)

	// derive or cross-check the subtotal against the line items
	if sum, ok := sumLineTotals(inv.Items); ok {
		if inv.SubtotalCents == nil {
			s := int64(math.Round(sum))
			inv.SubtotalCents = &s
		} else if !centsWithinTolerance(sum, *inv.SubtotalCents) {
			note("line items sum to %s, subtotal states %s",
				FormatCents(int64(math.Round(sum))), FormatCents(*inv.SubtotalCents))
		}
	}

	// derive or cross-check the total from subtotal + tax
	if inv.SubtotalCents != nil {
		tax := int64(0)
		if inv.TaxCents != nil {
			tax = *inv.TaxCents
		}
		expected := *inv.SubtotalCents + tax
		if inv.TotalCents == nil {
			inv.TotalCents = &expected
		} else if !centsWithinTolerance(float64(expected), *inv.TotalCents) {
			note("subtotal+tax is %s, total states %s",
				FormatCents(expected), FormatCents(*inv.TotalCents))
		}
	}

	inv.Confidence = blend(engineConfidence, cand.Confidence, len(mismatches))
	if len(mismatches) > 0 {
		logger.Warn("reconcile.mismatches",
			"invoice_number", inv.InvoiceNumber,
			"count", len(mismatches),
			"details", mismatches)
	}
	return inv, nil
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "USD"
	}
	return code
}

func parseMoneyField(name, raw string, note func(string, ...any)) *int64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	cents, err := ParseCents(raw)
	if err != nil {
		note("%s %q unparseable", name, raw)
		return nil
	}
	return &cents
}

// reconcileItems converts each line and cross-checks quantity times unit
// price against the stated line total, filling whichever side is missing.
func reconcileItems(items []llm.ItemFields, note func(string, ...any)) []entity.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]entity.LineItem, 0, len(items))
	for i, it := range items {
		li := entity.LineItem{
			SKU:         strings.TrimSpace(it.SKU),
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			Confidence:  1,
		}
		li.UnitPriceCents = parseMoneyField(fmt.Sprintf("item %d unit_price", i+1), it.UnitPrice, note)
		li.LineTotalCents = parseMoneyField(fmt.Sprintf("item %d line_total", i+1), it.LineTotal, note)

		if li.Quantity != nil && li.UnitPriceCents != nil {
			computed := *li.Quantity * float64(*li.UnitPriceCents)
			switch {
			case li.LineTotalCents == nil:
				derived := int64(math.Round(computed))
				li.LineTotalCents = &derived
			case !centsWithinTolerance(computed, *li.LineTotalCents):
				note("item %d: quantity x unit_price is %s, line_total states %s",
					i+1, FormatCents(int64(math.Round(computed))), FormatCents(*li.LineTotalCents))
				li.Confidence = 0.5
			}
		}
		if li.UnitPriceCents == nil && li.LineTotalCents == nil {
			li.Confidence = 0.3
		}
		out = append(out, li)
	}
	return out
}

func sumLineTotals(items []entity.LineItem) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	for _, it := range items {
		if it.LineTotalCents == nil {
			return 0, false
		}
		sum += float64(*it.LineTotalCents)
	}
	return sum, true
}

func blend(engine, candidate float32, mismatches int) float32 {
	score := (engine+candidate)/2 - mismatchPenalty*float32(mismatches)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
