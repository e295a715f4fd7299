package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"invoicescan/constants"
)

// LineItem is a reconciled invoice line. Money is fixed-point cents;
// nil pointers mean the field was absent from extraction.
type LineItem struct {
	SKU            string   `json:"sku,omitempty"`
	Description    string   `json:"description,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	UnitPriceCents *int64   `json:"unit_price_cents,omitempty"`
	LineTotalCents *int64   `json:"line_total_cents,omitempty"`
	Confidence     float32  `json:"confidence"`
}

// Invoice is the persisted, reconciled record for one parsing attempt.
// Mutated only through pipeline state transitions; never deleted here.
type Invoice struct {
	ID            uuid.UUID               `json:"id"`
	VendorID      uuid.UUID               `json:"vendor_id"`
	VendorName    string                  `json:"vendor_name"`
	InvoiceNumber string                  `json:"invoice_number"`
	InvoiceDate   *time.Time              `json:"invoice_date,omitempty"`
	DueDate       *time.Time              `json:"due_date,omitempty"`
	Items         []LineItem              `json:"items,omitempty"`
	SubtotalCents *int64                  `json:"subtotal_cents,omitempty"`
	TaxCents      *int64                  `json:"tax_cents,omitempty"`
	TotalCents    *int64                  `json:"total_cents,omitempty"`
	CurrencyCode  string                  `json:"currency_code,omitempty"`
	Status        constants.InvoiceStatus `json:"status"`
	ErrorReason   string                  `json:"error_reason,omitempty"`
	Confidence    float32                 `json:"confidence_score"`
	RawText       string                  `json:"raw_text,omitempty"`
	// ParsedPayload is the audit copy of the model output. It is stored
	// as opaque bytes and never re-parsed downstream.
	ParsedPayload json.RawMessage `json:"parsed_payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Parsed reports whether the record satisfies the terminal-success
// invariant: vendor, invoice number, and total all present.
func (inv *Invoice) Parsed() bool {
	return inv.VendorName != "" && inv.InvoiceNumber != "" && inv.TotalCents != nil
}
