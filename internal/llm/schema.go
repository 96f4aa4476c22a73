package llm

// BuildMetadataJSONSchema returns the JSON-Schema the oracle answer should meet.
// Answers that miss it are still accepted through Coerce.
func BuildMetadataJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":   map[string]any{"type": "string", "minLength": 1},
			"summary": map[string]any{"type": "string", "minLength": 1},
			"keywords": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": MaxKeywords,
			},
			"date": map[string]any{
				"type":    "string",
				"pattern": `^(\d{4}-\d{2}-\d{2}|` + DateNotFound + `)$`,
			},
		},
		"required": []string{"title", "summary", "keywords", "date"},
	}
}
