package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
	"invoicescan/internal/llm"
	"invoicescan/internal/ocr"
	"invoicescan/internal/pipeline"
	repo "invoicescan/internal/repository"
	"invoicescan/internal/validate"
)

// parse-invoice runs a single document through the pipeline and prints
// the resulting record plus any alerts as JSON. Useful for spot checks
// without the daemon.
func main() {
	var (
		vendorName = flag.String("vendor", "unassigned", "vendor name the invoice belongs to")
		dbPath     = flag.String("db", "", "database DSN; overrides DB_URL (a file path opens sqlite)")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: parse-invoice [-vendor NAME] [-db DSN] FILE")
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dbPath != "" {
		cfg.Database.DSN = *dbPath
	}
	if cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "no database configured: set DB_URL or pass -db")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mediaType := constants.MapExtToMediaType(filepath.Ext(path))
	if mediaType == "" {
		fmt.Fprintf(os.Stderr, "unsupported file extension: %s\n", path)
		os.Exit(2)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	db, pool, err := repo.Open(ctx, repo.Config{DSN: cfg.Database.DSN}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close(db, pool, logger)
	if err := repo.Migrate(ctx, db, logger); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	invoices := repo.NewInvoiceStore(db, logger)
	vendors := repo.NewVendorStore(db, logger)
	alerts := repo.NewAlertStore(db, logger)
	history := repo.NewVendorHistory(db, logger)

	textExtractor := ocr.NewExtractor(ocr.Config{
		ConfidenceFloor: cfg.OCR.ConfidenceFloor,
		Attempts:        cfg.OCR.Attempts,
		CallTimeout:     cfg.OCR.Timeout,
		PdftoppmBin:     cfg.OCR.PdftoppmBin,
		DPI:             cfg.OCR.DPI,
		MaxPages:        cfg.OCR.MaxPages,
		Preprocess:      cfg.OCR.Preprocess,
	}, []ocr.Backend{ocr.NewTesseract(ocr.TesseractConfig{
		Binary:      cfg.OCR.TesseractBin,
		TessdataDir: cfg.OCR.TessdataDir,
	})}, logger)

	llmClient, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "LLM client: %v\n", err)
		os.Exit(1)
	}
	fieldExtractor := llm.NewExtractor(llmClient, llm.Config{
		Attempts: cfg.LLM.Attempts,
		Timeout:  cfg.LLM.Timeout,
	}, logger)

	validator := validate.NewEngine(validate.Config{
		PriceDeviationWarn: cfg.Validate.PriceDeviationWarn,
		PriceDeviationHigh: cfg.Validate.PriceDeviationHigh,
	}, logger)

	runner := pipeline.NewRunner(textExtractor, fieldExtractor, validator, invoices, alerts, history, nil, logger)

	vendor, err := vendors.GetOrCreateByName(ctx, *vendorName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve vendor: %v\n", err)
		os.Exit(1)
	}

	doc := entity.Document{ID: uuid.New(), MediaType: mediaType, Bytes: b}
	if _, err := runner.Accept(ctx, doc, vendor.ID); err != nil {
		fmt.Fprintf(os.Stderr, "accept: %v\n", err)
		os.Exit(1)
	}
	inv, err := runner.Run(ctx, doc, vendor.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}

	raised, err := alerts.ListByInvoice(ctx, inv.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list alerts: %v\n", err)
		os.Exit(1)
	}

	out := struct {
		Invoice *entity.Invoice `json:"invoice"`
		Alerts  []entity.Alert  `json:"alerts"`
	}{inv, raised}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
