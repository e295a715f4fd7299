package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
	"invoicescan/internal/llm"
	"invoicescan/internal/ocr"
	"invoicescan/internal/validate"
)

type fakeText struct {
	res   ocr.Result
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeText) Extract(_ context.Context, _ entity.Document) (ocr.Result, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.res, f.err
}

type fakeFields struct {
	cand llm.Candidate
	err  error
}

func (f *fakeFields) Extract(_ context.Context, _ string) (llm.Candidate, error) {
	return f.cand, f.err
}

type memStore struct {
	mu    sync.Mutex
	saves []entity.Invoice
}

func (m *memStore) Save(_ context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, *inv)
	return nil
}

func (m *memStore) terminal() []entity.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Invoice
	for _, s := range m.saves {
		if s.Status == constants.StatusParsed || s.Status == constants.StatusError {
			out = append(out, s)
		}
	}
	return out
}

type memAlerts struct {
	mu    sync.Mutex
	saved []entity.Alert
}

func (m *memAlerts) SaveAll(_ context.Context, _ uuid.UUID, alerts []entity.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, alerts...)
	return nil
}

type fakeHistory struct {
	hist validate.History
}

func (f *fakeHistory) Snapshot(_ context.Context, _, _ uuid.UUID) (validate.History, error) {
	return f.hist, nil
}

func goodCandidate() llm.Candidate {
	cand := llm.Candidate{
		Fields: llm.InvoiceFields{
			VendorName:    "Acme Supply Co",
			InvoiceNumber: "INV-1001",
			InvoiceDate:   "2025-03-14",
			Total:         "32.40",
			CurrencyCode:  "USD",
		},
	}
	cand.FieldConfidence, cand.Confidence = llm.ScoreFields(cand.Fields)
	return cand
}

func newTestRunner(text *fakeText, fields *fakeFields, store *memStore, alerts *memAlerts, hist *fakeHistory) *Runner {
	return NewRunner(text, fields, validate.NewEngine(validate.Config{}, nil),
		store, alerts, hist, nil, nil)
}

func doc() entity.Document {
	return entity.Document{ID: uuid.New(), MediaType: "image/png", Bytes: []byte{1}}
}

func TestRunEndToEnd(t *testing.T) {
	text := &fakeText{res: ocr.Result{Text: "INVOICE #INV-1001 ...", Confidence: 0.92, EngineID: "tesseract"}}
	fields := &fakeFields{cand: goodCandidate()}
	store := &memStore{}
	alerts := &memAlerts{}
	r := newTestRunner(text, fields, store, alerts, &fakeHistory{})

	d := doc()
	inv, err := r.Run(context.Background(), d, uuid.New())

	require.NoError(t, err)
	assert.Equal(t, constants.StatusParsed, inv.Status)
	assert.Equal(t, d.ID, inv.ID)
	assert.Empty(t, inv.ErrorReason)
	// engine 0.92 blended with a fully-populated candidate stays high
	assert.GreaterOrEqual(t, inv.Confidence, float32(0.9))

	terminals := store.terminal()
	require.Len(t, terminals, 1)
	assert.Equal(t, constants.StatusParsed, terminals[0].Status)
}

func TestRunExtractionFailureRecorded(t *testing.T) {
	text := &fakeText{err: common.Failure(constants.ReasonExtractionFailure, "no backend produced text", nil)}
	store := &memStore{}
	r := newTestRunner(text, &fakeFields{}, store, &memAlerts{}, &fakeHistory{})

	_, err := r.Run(context.Background(), doc(), uuid.New())

	require.Error(t, err)
	terminals := store.terminal()
	require.Len(t, terminals, 1)
	assert.Equal(t, constants.StatusError, terminals[0].Status)
	assert.Equal(t, string(constants.ReasonExtractionFailure), terminals[0].ErrorReason)
}

func TestRunMissingRequiredFieldRecorded(t *testing.T) {
	text := &fakeText{res: ocr.Result{Text: "blurry", Confidence: 0.5}}
	cand := llm.Candidate{Fields: llm.InvoiceFields{Total: "10.00"}}
	store := &memStore{}
	r := newTestRunner(text, &fakeFields{cand: cand}, store, &memAlerts{}, &fakeHistory{})

	_, err := r.Run(context.Background(), doc(), uuid.New())

	require.Error(t, err)
	assert.Equal(t, constants.ReasonMissingRequiredField, common.FailureReason(err))
	terminals := store.terminal()
	require.Len(t, terminals, 1)
	assert.Equal(t, string(constants.ReasonMissingRequiredField), terminals[0].ErrorReason)
}

func TestRunDuplicateRaisesAlert(t *testing.T) {
	text := &fakeText{res: ocr.Result{Text: "INVOICE ...", Confidence: 0.92}}
	fields := &fakeFields{cand: goodCandidate()}
	store := &memStore{}
	alerts := &memAlerts{}
	hist := &fakeHistory{hist: validate.History{
		Invoices: []validate.PriorInvoice{{ID: uuid.New(), InvoiceNumber: "INV-1001"}},
	}}
	r := newTestRunner(text, fields, store, alerts, hist)

	inv, err := r.Run(context.Background(), doc(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, constants.StatusParsed, inv.Status)
	require.Len(t, alerts.saved, 1)
	assert.Equal(t, constants.AlertDuplicateInvoice, alerts.saved[0].Type)
}

func TestRunConcurrentCallsCoalesce(t *testing.T) {
	text := &fakeText{
		res:   ocr.Result{Text: "INVOICE ...", Confidence: 0.92},
		delay: 50 * time.Millisecond,
	}
	fields := &fakeFields{cand: goodCandidate()}
	store := &memStore{}
	r := newTestRunner(text, fields, store, &memAlerts{}, &fakeHistory{})

	d := doc()
	vendorID := uuid.New()
	var wg sync.WaitGroup
	results := make([]*entity.Invoice, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, err := r.Run(context.Background(), d, vendorID)
			require.NoError(t, err)
			results[i] = inv
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), text.calls.Load(), "one execution for concurrent submissions")
	assert.Equal(t, results[0].ID, results[1].ID)
	require.Len(t, store.terminal(), 1, "exactly one terminal record")
}
