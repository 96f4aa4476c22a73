package async

import (
	"context"
	"time"
)

// Job is one file waiting to go through the ingestion pipeline.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

// Processor handles one job. Errors are logged by the queue, never retried.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
