package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/constants"
	"invoicescan/internal/async"
	"invoicescan/internal/entity"
)

type fakeAccepter struct {
	accepted atomic.Int32
}

func (f *fakeAccepter) Accept(_ context.Context, doc entity.Document, vendorID uuid.UUID) (*entity.Invoice, error) {
	f.accepted.Add(1)
	return &entity.Invoice{ID: doc.ID, VendorID: vendorID, Status: constants.StatusUploaded}, nil
}

type fakeVendors struct {
	lastName string
}

func (f *fakeVendors) GetOrCreateByName(_ context.Context, name string) (*entity.Vendor, error) {
	f.lastName = name
	return &entity.Vendor{ID: uuid.New(), Name: name}, nil
}

type nopParser struct {
	runs atomic.Int32
}

func (p *nopParser) Run(_ context.Context, doc entity.Document, _ uuid.UUID) (*entity.Invoice, error) {
	p.runs.Add(1)
	return &entity.Invoice{ID: doc.ID, Status: constants.StatusParsed}, nil
}

func TestIntakeSubmitRoutesVendorByDirectory(t *testing.T) {
	inbox := t.TempDir()
	vendorDir := filepath.Join(inbox, "Acme Supply Co")
	require.NoError(t, os.MkdirAll(vendorDir, 0o755))
	path := filepath.Join(vendorDir, "invoice.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	accepter := &fakeAccepter{}
	vendors := &fakeVendors{}
	parser := &nopParser{}
	queue := async.NewParseQueue(parser, nil, async.WithWorkers(1))
	in := NewIntake(accepter, vendors, queue, nil)
	in.Roots = []string{inbox}

	require.NoError(t, in.Submit(context.Background(), path))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	queue.Shutdown(ctx)

	assert.Equal(t, "Acme Supply Co", vendors.lastName)
	assert.Equal(t, int32(1), accepter.accepted.Load())
	assert.Equal(t, int32(1), parser.runs.Load())
}

func TestIntakeSubmitRootFileUsesDefaultVendor(t *testing.T) {
	inbox := t.TempDir()
	path := filepath.Join(inbox, "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	vendors := &fakeVendors{}
	queue := async.NewParseQueue(&nopParser{}, nil, async.WithWorkers(1))
	defer queue.Shutdown(context.Background())
	in := NewIntake(&fakeAccepter{}, vendors, queue, nil)
	in.Roots = []string{inbox}

	require.NoError(t, in.Submit(context.Background(), path))
	assert.Equal(t, "unassigned", vendors.lastName)
}

func TestIntakeSubmitRejectsUnknownExtension(t *testing.T) {
	inbox := t.TempDir()
	path := filepath.Join(inbox, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	queue := async.NewParseQueue(&nopParser{}, nil, async.WithWorkers(1))
	defer queue.Shutdown(context.Background())
	in := NewIntake(&fakeAccepter{}, &fakeVendors{}, queue, nil)

	assert.Error(t, in.Submit(context.Background(), path))
}
