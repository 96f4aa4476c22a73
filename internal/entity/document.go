package entity

// DocumentMetadata is the canonical record for one ingested document.
// It is written once to the local metadata store and once to the search index.
type DocumentMetadata struct {
	ID            string   `json:"id"`
	Filename      string   `json:"filename"`
	FileExtension string   `json:"file_extension"`
	FileSizeBytes int64    `json:"file_size_bytes"`
	MediaType     string   `json:"media_type"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Keywords      []string `json:"keywords"`
	Date          string   `json:"date"`
	StoragePath   string   `json:"storage_path"`

	OriginalFilename       string `json:"original_filename"`
	UniqueFilename         string `json:"unique_filename"`
	UploadTimestamp        string `json:"upload_timestamp"`
	ProcessingTimestamp    string `json:"processing_timestamp"`
	AIModel                string `json:"ai_model"`
	TextLength             int    `json:"text_length"`
	FileHash               string `json:"file_hash"`
	ProcessingTimeEstimate int    `json:"processing_time_estimate"`
}

// SearchHit is one query match. Score and Highlights are only set when the
// backend provides them.
type SearchHit struct {
	Document   DocumentMetadata  `json:"document"`
	Score      *float64          `json:"score,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchResult is the response of one search call.
type SearchResult struct {
	Hits               []SearchHit `json:"hits"`
	EstimatedTotalHits int64       `json:"estimated_total_hits"`
	Query              string      `json:"query"`
	Limit              int         `json:"limit"`
	Offset             int         `json:"offset"`
	ProcessingTimeMs   int64       `json:"processing_time_ms"`
}
