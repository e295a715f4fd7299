package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"invoicescan/internal/async"
	"invoicescan/internal/common"
	"invoicescan/internal/export"
	"invoicescan/internal/ingest"
	"invoicescan/internal/llm"
	"invoicescan/internal/metrics"
	"invoicescan/internal/ocr"
	"invoicescan/internal/pipeline"
	repo "invoicescan/internal/repository"
	"invoicescan/internal/validate"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Check(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, pool, logger)

	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
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
	}, buildBackends(cfg.OCR, logger), logger)

	llmClient, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err, "provider", cfg.LLM.Provider)
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

	m := metrics.New(prometheus.DefaultRegisterer)
	runner := pipeline.NewRunner(textExtractor, fieldExtractor, validator, invoices, alerts, history, m, logger)

	queue := async.NewParseQueue(runner, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithJobTimeout(cfg.Pipeline.JobTimeout),
	)

	if cfg.Server.InboxDir != "" {
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Server.InboxDir},
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
		})
		if err != nil {
			logger.Error("failed to start inbox watcher", "dir", cfg.Server.InboxDir, "error", err)
			os.Exit(1)
		}
		intake := ingest.NewIntake(runner, vendors, queue, logger)
		intake.Roots = []string{cfg.Server.InboxDir}
		go intake.Pump(ctx, paths)
		go func() {
			for err := range errs {
				logger.Error("inbox watcher error", "error", err)
			}
		}()
		logger.Info("watching inbox", "dir", cfg.Server.InboxDir)
	}

	exporter := export.NewService(invoices, alerts, logger)

	// Metrics and export share the ops listener.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/export.xlsx", exportHandler(exporter, logger))
	opsServer := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
	go func() {
		logger.Info("ops endpoint listening", "addr", cfg.Server.MetricsAddr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops serve error", "error", err)
		}
	}()

	addr := cfg.Server.GRPCAddr
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("invoicescand listening", "addr", addr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	queue.Shutdown(context.Background())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = opsServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// buildBackends assembles the ranked OCR backend list from config.
// Unknown names are skipped with a warning rather than failing startup.
func buildBackends(cfg common.OCRConfig, logger *slog.Logger) []ocr.Backend {
	var backends []ocr.Backend
	for _, name := range cfg.Backends {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tesseract":
			backends = append(backends, ocr.NewTesseract(ocr.TesseractConfig{
				Binary:      cfg.TesseractBin,
				TessdataDir: cfg.TessdataDir,
			}))
		case "httpocr", "http":
			if cfg.HTTPEndpoint == "" {
				logger.Warn("httpocr backend configured without endpoint, skipping")
				continue
			}
			backends = append(backends, ocr.NewHTTPBackend(ocr.HTTPConfig{
				Endpoint: cfg.HTTPEndpoint,
				APIKey:   cfg.HTTPAPIKey,
				Timeout:  cfg.Timeout,
			}))
		default:
			logger.Warn("unknown OCR backend, skipping", "name", name)
		}
	}
	return backends
}

func exportHandler(svc *export.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var from, to *time.Time
		if v := r.URL.Query().Get("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "bad from date", http.StatusBadRequest)
				return
			}
			from = &t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "bad to date", http.StatusBadRequest)
				return
			}
			to = &t
		}
		b, err := svc.ExportXLSX(r.Context(), nil, from, to)
		if err != nil {
			logger.Error("export failed", "error", err)
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
		_, _ = w.Write(b)
	}
}
