package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docindex/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	TempDir   string // scratch dir for pdftotext input; if empty -> os.TempDir()
}

type Option func(*Extractor)

// WithRunner swaps the command runner used for pdftotext.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

var _ TextExtractor = (*Extractor)(nil)

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

type handler func(ctx context.Context, data []byte) (string, int, error)

func (e *Extractor) handlerFor(ext string) (handler, string, bool) {
	switch constants.NormalizeExt(ext) {
	case constants.PDF:
		return e.pdfText, MethodPDFText, true
	case constants.DOCX:
		return docxText, MethodDOCX, true
	case constants.PPTX:
		return pptxText, MethodPPTX, true
	case constants.XLSX:
		return xlsxText, MethodXLSX, true
	}
	return nil, "", false
}

// Extract picks a strategy based on file extension. Formats with a dedicated
// handler return "" on failure; everything else goes through charset decoding.
func (e *Extractor) Extract(ctx context.Context, data []byte, ext string) Result {
	start := time.Now()
	ext = constants.NormalizeExt(ext)
	e.logger.Debug("extract.start", "ext", ext, "bytes", len(data))

	h, method, ok := e.handlerFor(ext)
	if !ok {
		text, charset := decodeFallback(data)
		res := Result{Text: text, Method: "decode-" + charset, Duration: time.Since(start)}
		if charset == "" {
			res.Method = MethodNone
		}
		return res
	}

	text, pages, err := safeRun(ctx, h, data)
	res := Result{Text: text, Pages: pages, Method: method, Duration: time.Since(start)}
	if err != nil {
		e.logger.Warn("extract.failed", "ext", ext, "method", method, "error", err)
		res.Text = ""
		res.Pages = 0
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}
	e.logger.Debug("extract.ok", "ext", ext, "method", method, "pages", pages,
		"chars", len(text), "elapsed_ms", res.Duration.Milliseconds())
	return res
}

// safeRun converts a parser panic on a malformed file into an error.
func safeRun(ctx context.Context, h handler, data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("parser panic: %v", r)
		}
	}()
	return h(ctx, data)
}

// SupportedExtensions lists the extensions that have a dedicated handler or plain decoding.
func SupportedExtensions() []string {
	return constants.AllowedExtList()
}

// IsSupported reports whether filename carries a supported extension.
func IsSupported(filename string) bool {
	return constants.IsAllowedExt(filepath.Ext(filename))
}

// EstimateProcessingSeconds buckets a rough processing time by payload size.
func EstimateProcessingSeconds(size int64) int {
	switch {
	case size < 100*1024:
		return 5
	case size < 1024*1024:
		return 15
	case size < 10*1024*1024:
		return 45
	default:
		return 90
	}
}
