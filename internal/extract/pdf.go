package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// pdfText shells out to pdftotext; it reads from a file, so the bytes are spooled first.
func (e *Extractor) pdfText(ctx context.Context, data []byte) (string, int, error) {
	f, err := os.CreateTemp(e.cfg.TempDir, "docindex-*.pdf")
	if err != nil {
		return "", 0, err
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("failed to remove temp pdf", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}

	// pdftotext -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	text, pages := joinPages(string(out))
	return text, pages, nil
}

// joinPages splits pdftotext output on form feeds and drops pages without text.
func joinPages(raw string) (string, int) {
	var kept []string
	for _, page := range strings.Split(raw, "\f") {
		if p := strings.TrimSpace(page); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n"), len(kept)
}
