package llm

import (
	"context"

	"github.com/joseph-ayodele/docindex/constants"
)

// DocumentFields is the normalized shape we want from the oracle.
// Every field is always populated; failures become placeholder strings.
type DocumentFields struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Date     string   `json:"date"` // YYYY-MM-DD or DateNotFound
}

// Generator sends one prompt to a text model and returns its raw answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// How a parsed answer relates to the metadata schema.
const (
	SchemaStrict   = "strict"   // the raw answer met the schema
	SchemaLenient  = "lenient"  // it missed, the coerced fields meet it
	SchemaMismatch = "mismatch" // even the coerced fields miss it
)

// OracleResult carries the fields plus diagnostics that only go to server-side logs.
type OracleResult struct {
	Fields   DocumentFields
	Outcome  constants.OracleOutcome
	Model    string
	TextSent int    // characters of document text included in the prompt
	Tier     string // which parse attempt succeeded, empty on failure
	Schema   string // SchemaStrict, SchemaLenient or SchemaMismatch; empty on failure
	Err      error  // generator or parse error absorbed into the fallback
}

// MetadataExtractor is the interface the pipeline depends on.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, text string) OracleResult
}
