package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Placeholders used when a field cannot be produced.
const (
	TitleNotFound       = "Title not found"
	SummaryNotAvailable = "Summary not available"
	DateNotFound        = "date not found"

	AIErrorTitle      = "Error processing with AI"
	AIErrorSummary    = "Summary could not be generated because the AI service failed."
	ParseErrorTitle   = "Parse error - invalid response"
	ParseErrorSummary = "Summary could not be extracted because the AI response was malformed."
)

// AIErrorFields is returned when the generator call fails or times out.
func AIErrorFields() DocumentFields {
	return DocumentFields{Title: AIErrorTitle, Summary: AIErrorSummary, Keywords: []string{}, Date: DateNotFound}
}

// ParseErrorFields is returned when no JSON object can be found in the answer.
func ParseErrorFields() DocumentFields {
	return DocumentFields{Title: ParseErrorTitle, Summary: ParseErrorSummary, Keywords: []string{}, Date: DateNotFound}
}

// Coerce maps a decoded answer onto DocumentFields. It never fails: missing or
// unusable values fall back to placeholders and keywords is never nil.
func Coerce(obj map[string]any) (DocumentFields, []string) {
	var adjusted []string
	str := func(key, fallback string) string {
		v, ok := obj[key]
		if !ok || v == nil {
			adjusted = append(adjusted, key+"(missing)")
			return fallback
		}
		s, exact := stringify(v)
		s = strings.TrimSpace(s)
		if !exact {
			adjusted = append(adjusted, key+"(type)")
		}
		if s == "" {
			adjusted = append(adjusted, key+"(empty)")
			return fallback
		}
		return s
	}

	out := DocumentFields{
		Title:    str("title", TitleNotFound),
		Summary:  str("summary", SummaryNotAvailable),
		Date:     str("date", DateNotFound),
		Keywords: []string{},
	}

	switch kw := obj["keywords"].(type) {
	case []any:
		for _, item := range kw {
			if item == nil {
				continue
			}
			s, exact := stringify(item)
			if !exact {
				adjusted = append(adjusted, "keywords(item-type)")
			}
			if s = strings.TrimSpace(s); s != "" {
				out.Keywords = append(out.Keywords, s)
			}
		}
	case nil:
		adjusted = append(adjusted, "keywords(missing)")
	default:
		adjusted = append(adjusted, "keywords(type)")
	}
	return out, adjusted
}

// stringify renders scalars the way they read in JSON; exact is false when v was not a string.
func stringify(v any) (s string, exact bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), false
	case bool:
		return strconv.FormatBool(t), false
	case json.Number:
		return t.String(), false
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t), false
		}
		return string(b), false
	}
}
