package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"invoicescan/constants"
	"invoicescan/internal/common"
	"invoicescan/internal/entity"
)

// pageSeparator joins per-page texts in page order; the form feed keeps
// a recognizable page-break marker in the stored raw text.
const pageSeparator = "\n\f\n"

// Config tunes text extraction. Zero values fall back to defaults.
type Config struct {
	ConfidenceFloor float32       // below this the next backend is tried; default 0.4
	Attempts        int           // per-backend attempts on failure; default 2
	CallTimeout     time.Duration // per recognize call; default 30s
	PdftoppmBin     string        // binary name or absolute path; default "pdftoppm"
	DPI             int           // rasterization DPI for PDFs; default 300
	MaxPages        int           // 0 = no limit
	Preprocess      bool          // run image enhancement before recognition
}

// Extractor turns a raw document into plain text plus a confidence
// signal, trying ranked backends until one clears the floor.
type Extractor struct {
	cfg      Config
	backends []Backend
	runner   Runner
	logger   *slog.Logger
}

func NewExtractor(cfg Config, backends []Backend, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = 0.4
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.PdftoppmBin == "" {
		cfg.PdftoppmBin = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, backends: backends, runner: execRunner{}, logger: logger}
}

// Extract runs the ranked backends over the document. The first result
// meeting the confidence floor wins; otherwise the highest-confidence
// non-empty result is returned flagged LowConfidence. It fails with
// UnsupportedFormat for unknown media types and ExtractionFailure only
// when no backend produced any text at all.
func (e *Extractor) Extract(ctx context.Context, doc entity.Document) (Result, error) {
	start := time.Now()

	format := constants.MapMediaType(doc.MediaType)
	if format == "" {
		return Result{}, common.Failure(constants.ReasonUnsupportedFormat,
			fmt.Sprintf("media type %q is not accepted", doc.MediaType), nil)
	}

	var (
		pages [][]byte
		warns []string
	)
	switch format {
	case constants.PDF:
		var err error
		pages, warns, err = e.rasterize(ctx, doc.Bytes)
		if err != nil {
			return Result{Warnings: warns}, common.Failure(constants.ReasonExtractionFailure,
				"pdf rasterization failed", err)
		}
	default:
		pages = [][]byte{doc.Bytes}
	}

	if e.cfg.Preprocess {
		for i, p := range pages {
			enhanced, err := Preprocess(p)
			if err != nil {
				// lossy and best-effort: recognize the raw page instead
				warns = append(warns, fmt.Sprintf("preprocess page %d: %v", i+1, err))
				continue
			}
			pages[i] = enhanced
		}
	}

	var best Result
	for _, b := range e.backends {
		res, err := e.recognizeAll(ctx, b, pages)
		if err != nil {
			e.logger.Warn("ocr.backend.failed", "engine", b.Name(), "error", err)
			warns = append(warns, fmt.Sprintf("%s: %v", b.Name(), err))
			continue
		}
		if res.Text == "" {
			warns = append(warns, fmt.Sprintf("%s: empty text", b.Name()))
			continue
		}
		if res.Confidence >= e.cfg.ConfidenceFloor {
			res.Warnings = warns
			e.logger.Debug("ocr.extract.ok",
				"engine", res.EngineID, "pages", res.Pages,
				"confidence", res.Confidence,
				"elapsed_ms", time.Since(start).Milliseconds())
			return res, nil
		}
		if res.Confidence > best.Confidence {
			best = res
		}
	}

	if best.Text == "" {
		return Result{Warnings: warns}, common.Failure(constants.ReasonExtractionFailure,
			"no backend produced text", nil)
	}

	// extraction only fails on empty text; a weak result is surfaced
	// with the flag set so downstream can depress confidence
	best.LowConfidence = true
	best.Warnings = warns
	e.logger.Warn("ocr.extract.low_confidence",
		"engine", best.EngineID, "confidence", best.Confidence,
		"floor", e.cfg.ConfidenceFloor)
	return best, nil
}

// recognizeAll runs one backend over every page, retrying the whole
// backend on failure up to the configured attempt count.
func (e *Extractor) recognizeAll(ctx context.Context, b Backend, pages [][]byte) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.Attempts; attempt++ {
		res, err := e.recognizeOnce(ctx, b, pages)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Debug("ocr.backend.retry", "engine", b.Name(), "attempt", attempt, "error", err)
	}
	return Result{}, lastErr
}

func (e *Extractor) recognizeOnce(ctx context.Context, b Backend, pages [][]byte) (Result, error) {
	var (
		texts []string
		sum   float32
		n     int
	)
	for i, page := range pages {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		txt, conf, err := b.Recognize(callCtx, page)
		cancel()
		if err != nil {
			return Result{}, fmt.Errorf("page %d: %w", i+1, err)
		}
		if txt = strings.TrimSpace(txt); txt != "" {
			texts = append(texts, txt)
			sum += conf
			n++
		}
	}

	res := Result{EngineID: b.Name(), Pages: len(pages)}
	if n > 0 {
		res.Text = strings.Join(texts, pageSeparator)
		res.Confidence = sum / float32(n)
	}
	return res, nil
}
