package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullFields() InvoiceFields {
	return InvoiceFields{
		VendorName:    "Acme Supply Co",
		InvoiceNumber: "INV-1001",
		InvoiceDate:   "2026-08-01",
		Total:         "32.40",
		CurrencyCode:  "USD",
		Items: []ItemFields{
			{Description: "Widget", UnitPrice: "10.00", LineTotal: "30.00"},
		},
	}
}

func TestScoreFieldsMalformedValuesScoreHalf(t *testing.T) {
	f := fullFields()
	f.InvoiceDate = "08/01/2026"
	f.Total = "thirty-two"

	fc, _ := ScoreFields(f)
	assert.Equal(t, float32(0.5), fc["invoice_date"])
	assert.Equal(t, float32(0.5), fc["total"])
	assert.Equal(t, float32(1), fc["vendor_name"])
}

func TestScoreFieldsCurrencyCarriesNoWeight(t *testing.T) {
	with := fullFields()
	without := fullFields()
	without.CurrencyCode = ""

	_, a := ScoreFields(with)
	_, b := ScoreFields(without)
	assert.Equal(t, a, b)

	fc, _ := ScoreFields(without)
	assert.Zero(t, fc["currency_code"])
}

func TestScoreFieldsRequiredFieldsWeighEqually(t *testing.T) {
	noDate := fullFields()
	noDate.InvoiceDate = ""
	noVendor := fullFields()
	noVendor.VendorName = ""

	_, a := ScoreFields(noDate)
	_, b := ScoreFields(noVendor)
	assert.Equal(t, a, b)
}
