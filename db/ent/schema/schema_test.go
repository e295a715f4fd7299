package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceStatusValidator(t *testing.T) {
	fields := Invoice{}.Fields()
	var validator func(string) error
	for _, f := range fields {
		d := f.Descriptor()
		if d.Name == "status" {
			require.Len(t, d.Validators, 1)
			validator = d.Validators[0].(func(string) error)
		}
	}
	require.NotNil(t, validator)

	for _, ok := range []string{"uploaded", "processing", "parsed", "error"} {
		assert.NoError(t, validator(ok))
	}
	assert.Error(t, validator("done"))
}

func TestAlertEnums(t *testing.T) {
	var typeValidator, sevValidator func(string) error
	for _, f := range (Alert{}).Fields() {
		d := f.Descriptor()
		switch d.Name {
		case "type":
			typeValidator = d.Validators[0].(func(string) error)
		case "severity":
			sevValidator = d.Validators[0].(func(string) error)
		}
	}
	require.NotNil(t, typeValidator)
	require.NotNil(t, sevValidator)

	assert.NoError(t, typeValidator("duplicate_invoice"))
	assert.NoError(t, typeValidator("price_deviation"))
	assert.Error(t, typeValidator("late_payment"))
	assert.NoError(t, sevValidator("medium"))
	assert.Error(t, sevValidator("critical"))
}

func TestEdgesWireVendorInvoiceItems(t *testing.T) {
	vendorEdges := Vendor{}.Edges()
	require.Len(t, vendorEdges, 1)
	assert.Equal(t, "invoices", vendorEdges[0].Descriptor().Name)

	invoiceEdges := Invoice{}.Edges()
	names := make([]string, 0, len(invoiceEdges))
	for _, e := range invoiceEdges {
		names = append(names, e.Descriptor().Name)
	}
	assert.ElementsMatch(t, []string{"vendor", "items", "alerts"}, names)
}
