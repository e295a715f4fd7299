package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoicescan/constants"
	"invoicescan/internal/async"
	"invoicescan/internal/entity"
)

// Accepter records a document's arrival before it is queued; satisfied
// by the pipeline runner.
type Accepter interface {
	Accept(ctx context.Context, doc entity.Document, vendorID uuid.UUID) (*entity.Invoice, error)
}

// VendorResolver maps a vendor name to its record, creating on first
// sight.
type VendorResolver interface {
	GetOrCreateByName(ctx context.Context, name string) (*entity.Vendor, error)
}

// Intake turns files dropped into the inbox into queued parse jobs.
// The vendor is taken from the file's parent directory name, so an
// inbox laid out as inbox/<vendor>/<file> routes each document.
type Intake struct {
	accepter Accepter
	vendors  VendorResolver
	queue    *async.ParseQueue
	logger   *slog.Logger

	// DefaultVendor receives files dropped directly into the inbox root.
	DefaultVendor string
	// Roots are the inbox roots; a file directly under one belongs to
	// DefaultVendor rather than a vendor named after the root.
	Roots []string
}

func NewIntake(accepter Accepter, vendors VendorResolver, queue *async.ParseQueue, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		accepter:      accepter,
		vendors:       vendors,
		queue:         queue,
		logger:        logger,
		DefaultVendor: "unassigned",
	}
}

// Submit reads the file, records the upload, and queues it for parsing.
func (in *Intake) Submit(ctx context.Context, path string) error {
	mediaType := constants.MapExtToMediaType(filepath.Ext(path))
	if mediaType == "" {
		return fmt.Errorf("unsupported file extension: %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	vendorName := in.vendorFor(path)
	vendor, err := in.vendors.GetOrCreateByName(ctx, vendorName)
	if err != nil {
		return fmt.Errorf("resolve vendor %q: %w", vendorName, err)
	}

	doc := entity.Document{ID: uuid.New(), MediaType: mediaType, Bytes: b}
	if _, err := in.accepter.Accept(ctx, doc, vendor.ID); err != nil {
		return fmt.Errorf("accept document: %w", err)
	}

	in.logger.Info("ingest.submitted",
		"path", path, "invoice_id", doc.ID, "vendor", vendor.Name, "bytes", len(b))
	return in.queue.Enqueue(ctx, async.Job{
		VendorID:    vendor.ID,
		Document:    doc,
		SubmittedAt: time.Now(),
		TraceID:     uuid.NewString(),
	})
}

func (in *Intake) vendorFor(path string) string {
	dir := filepath.Clean(filepath.Dir(path))
	for _, root := range in.Roots {
		if dir == filepath.Clean(root) {
			return in.DefaultVendor
		}
	}
	name := strings.TrimSpace(filepath.Base(dir))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return in.DefaultVendor
	}
	return name
}

// Pump drains watcher events into Submit until the channel closes.
func (in *Intake) Pump(ctx context.Context, paths <-chan string) {
	for path := range paths {
		if err := in.Submit(ctx, path); err != nil {
			in.logger.Error("ingest.submit_failed", "path", path, "error", err)
		}
	}
}
