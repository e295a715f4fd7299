package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig configures the remote recognition backend.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Language string        // default "en"
	Timeout  time.Duration // http client timeout, default 30s
}

// HTTPBackend sends images to a hosted recognition API. The wire shape
// is a minimal JSON contract so any vision service can sit behind it.
type HTTPBackend struct {
	cfg  HTTPConfig
	http *http.Client
}

func NewHTTPBackend(cfg HTTPConfig) *HTTPBackend {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPBackend{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (b *HTTPBackend) Name() string { return "httpocr" }

func (b *HTTPBackend) Recognize(ctx context.Context, image []byte) (string, float32, error) {
	body := map[string]any{
		"image":    base64.StdEncoding.EncodeToString(image),
		"language": b.cfg.Language,
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(bs))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("api-key", b.cfg.APIKey)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ocr http: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", 0, fmt.Errorf("ocr http status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var out struct {
		Text       string  `json:"text"`
		Confidence float32 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}

	txt := Normalize(out.Text)
	conf := out.Confidence
	if conf <= 0 {
		conf = heuristicConfidence(txt)
	}
	return txt, conf, nil
}
