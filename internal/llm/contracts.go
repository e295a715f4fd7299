package llm

import "context"

// ItemFields is one line item as the model reports it. Money fields are
// decimal strings so the model never has to guess at float formatting.
type ItemFields struct {
	SKU         string   `json:"sku,omitempty"`
	Description string   `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   string   `json:"unit_price,omitempty"` // decimal
	LineTotal   string   `json:"line_total,omitempty"` // decimal
}

// InvoiceFields is the normalized shape we want from the LLM.
type InvoiceFields struct {
	VendorName      string       `json:"vendor_name,omitempty"`
	InvoiceNumber   string       `json:"invoice_number,omitempty"`
	InvoiceDate     string       `json:"invoice_date,omitempty"` // YYYY-MM-DD
	DueDate         string       `json:"due_date,omitempty"`     // YYYY-MM-DD
	Items           []ItemFields `json:"items,omitempty"`
	Subtotal        string       `json:"subtotal,omitempty"` // decimal
	Tax             string       `json:"tax,omitempty"`      // decimal
	Total           string       `json:"total,omitempty"`    // decimal
	CurrencyCode    string       `json:"currency_code,omitempty"`
	ModelConfidence float32      `json:"confidence,omitempty"` // optional (0..1)
}

// Candidate is the outcome of structured extraction: the parsed fields,
// the raw JSON they came from, and per-field confidence estimates.
type Candidate struct {
	Fields          InvoiceFields
	Raw             []byte
	FieldConfidence map[string]float32
	Confidence      float32
	Repaired        bool
}

// Client is a completion transport: prompt in, raw model output out.
// Implementations wrap one provider API.
type Client interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}
