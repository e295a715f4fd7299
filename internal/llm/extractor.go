package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"invoicescan/constants"
	"invoicescan/internal/common"
)

// Config tunes structured extraction.
type Config struct {
	Attempts int           // transport attempts before giving up; default 2
	Timeout  time.Duration // per completion call; default 30s
}

// Extractor turns extracted text into a structured invoice candidate via
// a schema-constrained completion, with exactly one repair pass when the
// output fails strict validation.
type Extractor struct {
	client Client
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(client Client, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Extractor{client: client, cfg: cfg, logger: logger}
}

// Extract prompts the model and parses its output. Transport failures
// after all attempts surface as LLMUnavailable; output that cannot be
// parsed even after the repair pass surfaces as MalformedResponse.
func (e *Extractor) Extract(ctx context.Context, rawText string) (Candidate, error) {
	start := time.Now()
	schema := BuildInvoiceJSONSchema()
	sys := BuildSystemPrompt(mustJSON(schema))
	user := BuildUserPrompt(rawText)

	content, err := e.complete(ctx, sys, user)
	if err != nil {
		return Candidate{}, common.Failure(constants.ReasonLLMUnavailable,
			"completion transport failed", err)
	}

	cand, err := e.parse(schema, []byte(content))
	if err != nil {
		e.logger.Error("llm.extract.malformed",
			"provider", e.client.Name(), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Candidate{}, common.Failure(constants.ReasonMalformedResponse,
			"model output failed schema validation", err)
	}

	cand.FieldConfidence, cand.Confidence = ScoreFields(cand.Fields)
	e.logger.Info("llm.extract.ok",
		"provider", e.client.Name(),
		"vendor", cand.Fields.VendorName,
		"invoice_number", cand.Fields.InvoiceNumber,
		"total", cand.Fields.Total,
		"confidence", cand.Confidence,
		"repaired", cand.Repaired,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cand, nil
}

func (e *Extractor) complete(ctx context.Context, sys, user string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.Attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		content, err := e.client.Complete(callCtx, sys, user)
		cancel()
		if err == nil {
			return content, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Warn("llm.complete.retry",
			"provider", e.client.Name(), "attempt", attempt, "error", err)
	}
	return "", lastErr
}

// parse validates strictly first, then applies the single repair pass.
func (e *Extractor) parse(schema map[string]any, raw []byte) (Candidate, error) {
	if err := ValidateJSONAgainstSchema(schema, raw); err == nil {
		var f InvoiceFields
		if uerr := json.Unmarshal(raw, &f); uerr == nil {
			return Candidate{Fields: f, Raw: raw}, nil
		}
	}

	repaired, fixes, err := RepairJSON(raw)
	if err != nil {
		return Candidate{}, err
	}
	if err := ValidateJSONAgainstSchema(schema, repaired); err != nil {
		return Candidate{}, err
	}
	var f InvoiceFields
	if err := json.Unmarshal(repaired, &f); err != nil {
		return Candidate{}, err
	}
	e.logger.Warn("llm.extract.repaired", "fixes", fixes)
	return Candidate{Fields: f, Raw: repaired, Repaired: true}, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
