package storage

import (
	"context"
	"time"
)

// DefaultPrefix is the root every uploaded document is stored under.
const DefaultPrefix = "documents/"

// Object describes one stored blob.
type Object struct {
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated"`
	ContentType string    `json:"content_type"`
}

// Store is the object store the pipeline and download routes depend on.
// Get wraps common.ErrNotFound when path does not exist.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, Object, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Ping(ctx context.Context) error
	Close() error
}
