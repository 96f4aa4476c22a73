package constants

import (
	"mime"
	"strings"
)

// AllowedExtensions holds the upload allow-list (lowercase, without '.').
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"pptx": {},
	"xlsx": {},
	"txt":  {},
	"md":   {},
}

const (
	PDF  = "pdf"
	DOCX = "docx"
	PPTX = "pptx"
	XLSX = "xlsx"
	TXT  = "txt"
	MD   = "md"
)

// DefaultMaxUploadBytes is 50 MiB.
const DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

const OctetStream = "application/octet-stream"

var mediaTypes = map[string]string{
	PDF:  "application/pdf",
	DOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	PPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	XLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	TXT:  "text/plain",
	MD:   "text/markdown",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext (with or without dot) is in the allow-list.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// AllowedExtList returns the allow-list as ".ext" strings in a stable order.
func AllowedExtList() []string {
	return []string{".pdf", ".docx", ".pptx", ".xlsx", ".txt", ".md"}
}

// GuessMediaType resolves a content type for ext, falling back to octet-stream.
func GuessMediaType(ext string) string {
	e := NormalizeExt(ext)
	if mt, ok := mediaTypes[e]; ok {
		return mt
	}
	if mt := mime.TypeByExtension("." + e); mt != "" {
		return mt
	}
	return OctetStream
}
