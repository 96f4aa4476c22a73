package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Parse tiers, in the order they are attempted.
const (
	TierDirect = "direct"
	TierFenced = "fenced"
	TierBraces = "braces"
)

var fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseResponse pulls a JSON object out of a model answer. It tries the whole
// answer, then the first fenced code block, then the span from the first '{'
// to the last '}'. The first attempt that decodes to an object wins.
func ParseResponse(raw string) (map[string]any, string, bool) {
	if obj, ok := decodeObject(strings.TrimSpace(raw)); ok {
		return obj, TierDirect, true
	}
	if m := fencedObject.FindStringSubmatch(raw); m != nil {
		if obj, ok := decodeObject(strings.TrimSpace(m[1])); ok {
			return obj, TierFenced, true
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && start < end {
		if obj, ok := decodeObject(raw[start : end+1]); ok {
			return obj, TierBraces, true
		}
	}
	return nil, "", false
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}
