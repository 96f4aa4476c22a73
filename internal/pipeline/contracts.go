package pipeline

import (
	"context"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

// Indexer upserts documents into the search index.
type Indexer interface {
	Index(ctx context.Context, docs ...entity.DocumentMetadata) error
}

// MetadataWriter keeps the local copy of document metadata.
type MetadataWriter interface {
	Put(doc entity.DocumentMetadata) error
}

// Auditor records audit events. It must not fail the caller.
type Auditor interface {
	LogEvent(ctx context.Context, userID *string, eventType string, details map[string]any, severity constants.Severity, source string) string
}

// Upload is one document handed to the pipeline.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string // as declared by the client; may be empty
	Source      string // audit source, "api" when empty
}

// Result is a completed ingestion. A non-nil LocalPersistErr or IndexErr means
// the document is stored but a secondary write failed.
type Result struct {
	Metadata        entity.DocumentMetadata
	OracleOutcome   constants.OracleOutcome
	LocalPersistErr error
	IndexErr        error
}

func (r *Result) Degraded() bool {
	return r.LocalPersistErr != nil || r.IndexErr != nil
}

func (r *Result) Status() constants.IngestStatus {
	if r.Degraded() {
		return constants.IngestStatusDegraded
	}
	return constants.IngestStatusSuccess
}
