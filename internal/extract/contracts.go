package extract

import (
	"context"
	"time"
)

// TextExtractor turns raw document bytes into plain text.
// Implementations never fail: a broken file yields an empty Text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, ext string) Result
}

type Result struct {
	Text     string
	Pages    int    // pages, slides or sheets that produced text
	Method   string // "pdf-text" | "docx-xml" | "pptx-xml" | "xlsx" | "decode-<charset>" | "none"
	Duration time.Duration
	Warnings []string
}

// Extraction methods reported in Result.Method.
const (
	MethodPDFText = "pdf-text"
	MethodDOCX    = "docx-xml"
	MethodPPTX    = "pptx-xml"
	MethodXLSX    = "xlsx"
	MethodNone    = "none"
)

// NotExtractable is returned by the decode fallback when no charset yields content.
const NotExtractable = "content not extractable - binary or corrupt file"
