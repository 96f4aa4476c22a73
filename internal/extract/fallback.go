package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type candidate struct {
	name string
	dec  *encoding.Decoder // nil means UTF-8
}

var fallbackCharsets = []candidate{
	{name: "utf-8"},
	{name: "latin-1", dec: charmap.ISO8859_1.NewDecoder()},
	{name: "cp1252", dec: charmap.Windows1252.NewDecoder()},
}

// decodeFallback tries each charset in order and keeps the first decoding
// with visible content. It returns NotExtractable and "" when none does.
func decodeFallback(data []byte) (string, string) {
	for _, c := range fallbackCharsets {
		text, ok := decodeWith(c, data)
		if ok && hasVisible(text) {
			return text, c.name
		}
	}
	return NotExtractable, ""
}

func decodeWith(c candidate, data []byte) (string, bool) {
	if c.dec == nil {
		return dropInvalidUTF8(data), true
	}
	out, err := c.dec.Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// dropInvalidUTF8 keeps valid runes and discards malformed sequences and NULs.
func dropInvalidUTF8(data []byte) string {
	if utf8.Valid(data) && !strings.ContainsRune(string(data), 0) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError || size > 1 {
			if r != 0 {
				b.WriteRune(r)
			}
		}
		data = data[size:]
	}
	return b.String()
}

func hasVisible(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsControl(r) {
			return true
		}
	}
	return false
}
