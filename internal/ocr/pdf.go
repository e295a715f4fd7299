package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// rasterize renders each PDF page to a PNG via pdftoppm and returns the
// page images in page order.
func (e *Extractor) rasterize(ctx context.Context, pdf []byte) ([][]byte, []string, error) {
	tmpDir, err := os.MkdirTemp("", "is-pdf-*")
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(in, pdf, 0o644); err != nil {
		return nil, nil, err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.PdftoppmBin, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return nil, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	pages := make([][]byte, 0, len(matches))
	var warns []string
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		pages = append(pages, b)
	}
	if len(pages) == 0 {
		return nil, warns, fmt.Errorf("no pages readable")
	}
	return pages, warns, nil
}
