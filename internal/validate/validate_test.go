package validate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/constants"
	"invoicescan/internal/entity"
)

func cents(v int64) *int64 { return &v }

func invoiceWithItem(sku string, unitPriceCents int64) entity.Invoice {
	return entity.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-100",
		Items: []entity.LineItem{
			{SKU: sku, Description: "Widget", UnitPriceCents: cents(unitPriceCents)},
		},
	}
}

func TestValidateNoHistoryNoAlerts(t *testing.T) {
	e := NewEngine(Config{}, nil)
	alerts := e.Validate(invoiceWithItem("WID-1", 1000), History{})
	assert.Empty(t, alerts)
}

func TestValidateDuplicateInvoiceNumber(t *testing.T) {
	e := NewEngine(Config{}, nil)
	priorID := uuid.New()
	inv := invoiceWithItem("WID-1", 1000)
	hist := History{Invoices: []PriorInvoice{{ID: priorID, InvoiceNumber: " inv-100 "}}}

	alerts := e.Validate(inv, hist)
	require.Len(t, alerts, 1)
	assert.Equal(t, constants.AlertDuplicateInvoice, alerts[0].Type)
	assert.Equal(t, constants.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, constants.AlertActive, alerts[0].Status)
	assert.Equal(t, inv.ID, alerts[0].InvoiceID)
}

func TestValidateSameInvoiceNotItsOwnDuplicate(t *testing.T) {
	e := NewEngine(Config{}, nil)
	inv := invoiceWithItem("WID-1", 1000)
	hist := History{Invoices: []PriorInvoice{{ID: inv.ID, InvoiceNumber: "INV-100"}}}

	assert.Empty(t, e.Validate(inv, hist))
}

func TestValidatePriceDeviationBoundaries(t *testing.T) {
	e := NewEngine(Config{}, nil)
	hist := History{UnitPrices: map[string]int64{"WID-1": 1000}}

	tests := []struct {
		name     string
		price    int64
		alerts   int
		severity constants.AlertSeverity
	}{
		{"just under warn", 1049, 0, ""},
		{"exactly warn", 1050, 1, constants.SeverityMedium},
		{"exactly high", 1200, 1, constants.SeverityHigh},
		{"drop below warn", 951, 0, ""},
		{"large drop", 700, 1, constants.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := e.Validate(invoiceWithItem("WID-1", tt.price), hist)
			require.Len(t, alerts, tt.alerts)
			if tt.alerts > 0 {
				assert.Equal(t, constants.AlertPriceDeviation, alerts[0].Type)
				assert.Equal(t, tt.severity, alerts[0].Severity)
			}
		})
	}
}

func TestValidateDescriptionKeyFallback(t *testing.T) {
	e := NewEngine(Config{}, nil)
	inv := entity.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-7",
		Items: []entity.LineItem{
			{Description: "  Premium   Coffee Beans ", UnitPriceCents: cents(1500)},
		},
	}
	hist := History{UnitPrices: map[string]int64{"premium coffee beans": 1000}}

	alerts := e.Validate(inv, hist)
	require.Len(t, alerts, 1)
	assert.Equal(t, constants.SeverityHigh, alerts[0].Severity)
}

func TestValidateOrderingAndIdempotence(t *testing.T) {
	e := NewEngine(Config{}, nil)
	inv := entity.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-9",
		Items: []entity.LineItem{
			{SKU: "ZZZ", UnitPriceCents: cents(1300)},
			{SKU: "AAA", UnitPriceCents: cents(1300)},
		},
	}
	hist := History{
		Invoices:   []PriorInvoice{{ID: uuid.New(), InvoiceNumber: "INV-9"}},
		UnitPrices: map[string]int64{"AAA": 1000, "ZZZ": 1000},
	}

	first := e.Validate(inv, hist)
	second := e.Validate(inv, hist)

	require.Len(t, first, 3)
	assert.Equal(t, constants.AlertDuplicateInvoice, first[0].Type)
	assert.Contains(t, first[1].Message, `"AAA"`)
	assert.Contains(t, first[2].Message, `"ZZZ"`)

	// stateless: repeated runs raise the same findings
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].Severity, second[i].Severity)
		assert.Equal(t, first[i].Message, second[i].Message)
	}
}
