package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/constants"
	"invoicescan/internal/common"
)

type fakeClient struct {
	content string
	err     error
	calls   int
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

const goodJSON = `{
	"vendor_name": "Acme Supply Co",
	"invoice_number": "INV-1001",
	"invoice_date": "2025-03-14",
	"items": [
		{"sku": "WID-1", "description": "Widget", "quantity": 3, "unit_price": "10.00", "line_total": "30.00"}
	],
	"subtotal": "30.00",
	"tax": "2.40",
	"total": "32.40",
	"currency_code": "USD",
	"confidence": 0.95
}`

func TestExtractValidOutput(t *testing.T) {
	c := &fakeClient{content: goodJSON}
	e := NewExtractor(c, Config{}, nil)

	cand, err := e.Extract(context.Background(), "INVOICE ...")
	require.NoError(t, err)
	assert.Equal(t, "Acme Supply Co", cand.Fields.VendorName)
	assert.Equal(t, "INV-1001", cand.Fields.InvoiceNumber)
	assert.Len(t, cand.Fields.Items, 1)
	assert.False(t, cand.Repaired)
	assert.Greater(t, cand.Confidence, float32(0.9))
	assert.Equal(t, float32(1), cand.FieldConfidence["vendor_name"])
}

func TestExtractRepairsFencedOutput(t *testing.T) {
	// fenced, synonym keys, numeric money, an unknown key
	c := &fakeClient{content: "Here you go:\n```json\n" + `{
		"vendor": "Acme Supply Co",
		"invoice_no": "INV-1001",
		"total": 32.40,
		"currency": "usd",
		"notes": "n/a"
	}` + "\n```"}
	e := NewExtractor(c, Config{}, nil)

	cand, err := e.Extract(context.Background(), "INVOICE ...")
	require.NoError(t, err)
	assert.True(t, cand.Repaired)
	assert.Equal(t, "Acme Supply Co", cand.Fields.VendorName)
	assert.Equal(t, "INV-1001", cand.Fields.InvoiceNumber)
	assert.Equal(t, "32.40", cand.Fields.Total)
	assert.Equal(t, "USD", cand.Fields.CurrencyCode)
}

func TestExtractMalformedAfterRepair(t *testing.T) {
	c := &fakeClient{content: "I could not read the document, sorry."}
	e := NewExtractor(c, Config{}, nil)

	_, err := e.Extract(context.Background(), "INVOICE ...")
	require.Error(t, err)
	assert.Equal(t, constants.ReasonMalformedResponse, common.FailureReason(err))
}

func TestExtractTransportFailure(t *testing.T) {
	c := &fakeClient{err: errors.New("connection refused")}
	e := NewExtractor(c, Config{Attempts: 2}, nil)

	_, err := e.Extract(context.Background(), "INVOICE ...")
	require.Error(t, err)
	assert.Equal(t, constants.ReasonLLMUnavailable, common.FailureReason(err))
	assert.Equal(t, 2, c.calls)
}

func TestExtractMissingFieldsDegradeConfidence(t *testing.T) {
	c := &fakeClient{content: `{"total": "10.00", "currency_code": "USD"}`}
	e := NewExtractor(c, Config{}, nil)

	cand, err := e.Extract(context.Background(), "blurry scan")
	require.NoError(t, err)
	assert.Zero(t, cand.FieldConfidence["vendor_name"])
	assert.Zero(t, cand.FieldConfidence["invoice_number"])
	assert.Less(t, cand.Confidence, float32(0.5))
}
