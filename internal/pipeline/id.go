package pipeline

import (
	"path/filepath"
	"strings"
)

const maxStemLen = 100

// DocumentID derives "<stem>-<suffix>" from the upload name. The stem keeps
// only [A-Za-z0-9_-] so the id is also a valid search primary key.
func DocumentID(filename, suffix string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= maxStemLen {
			break
		}
	}
	clean := strings.Trim(b.String(), "_-")
	if clean == "" {
		clean = "document"
	}
	return clean + "-" + suffix
}
