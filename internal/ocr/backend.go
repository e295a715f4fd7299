package ocr

import "context"

// Backend is the single OCR capability: image bytes in, text and a
// confidence estimate in [0,1] out. Implementations wrap one engine
// (local binary, remote API) and are ranked by configuration.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (text string, confidence float32, err error)
}

// Result is the outcome of text extraction for one document.
type Result struct {
	Text          string
	Confidence    float32
	EngineID      string
	Pages         int
	LowConfidence bool
	Warnings      []string
}
