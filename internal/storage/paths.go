package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSuffix returns 8 random hex characters.
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// UniqueFilename renders <stem>_<YYYYmmdd_HHMMSS>_<suffix><ext>.
func UniqueFilename(original string, now time.Time, suffix string) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(original, ext)
	return fmt.Sprintf("%s_%s_%s%s", stem, now.Format("20060102_150405"), suffix, ext)
}

// DatedPath places name under documents/YYYY/MM/DD/.
func DatedPath(name string, now time.Time) string {
	return path.Join(strings.TrimSuffix(DefaultPrefix, "/"), now.Format("2006"), now.Format("01"), now.Format("02"), name)
}

// cleanKey rejects keys that try to escape the bucket root.
func cleanKey(p string) (string, error) {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	if p == "" || strings.Contains(p, "..") || strings.ContainsRune(p, '\\') {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return p, nil
}
