package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/docindex/internal/entity"
)

const (
	DefaultIndex     = "documents"
	PrimaryKey       = "id"
	DefaultLimit     = 20
	MaxLimit         = 100
	highlightPreTag  = "<mark>"
	highlightPostTag = "</mark>"
)

// Attributes configured on the index at creation time.
var (
	FilterableAttributes = []string{"file_extension", "date", "media_type", "keywords"}
	SortableAttributes   = []string{"upload_timestamp", "date", "title", "file_size_bytes"}
)

// Query is one search request. An empty Q lists everything.
type Query struct {
	Q      string
	Limit  int
	Offset int
	Filter string   // backend filter expression, e.g. `file_extension = ".pdf"`
	Sort   []string // "field:asc" | "field:desc"
}

// Backend is the external search index.
type Backend interface {
	EnsureIndex(ctx context.Context, name, primaryKey string) error
	Upsert(ctx context.Context, index string, docs []entity.DocumentMetadata) error
	Query(ctx context.Context, index string, q Query) (entity.SearchResult, error)
	Health(ctx context.Context) error
}

// Service is the search facade. The index is created on first use; a failed
// initialization is retried on the next call.
type Service struct {
	backend Backend
	index   string
	logger  *slog.Logger

	mu    sync.Mutex
	ready bool
}

func NewService(backend Backend, index string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if index == "" {
		index = DefaultIndex
	}
	return &Service{backend: backend, index: index, logger: logger}
}

// EnsureIndex creates the index if it does not exist yet. Safe to call concurrently.
func (s *Service) EnsureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.backend.EnsureIndex(ctx, s.index, PrimaryKey); err != nil {
		s.logger.Error("search.ensure_index.error", "index", s.index, "error", err)
		return fmt.Errorf("ensure index %q: %w", s.index, err)
	}
	s.ready = true
	s.logger.Info("search.ensure_index.ok", "index", s.index)
	return nil
}

// Index upserts docs by id.
func (s *Service) Index(ctx context.Context, docs ...entity.DocumentMetadata) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return err
	}
	if err := s.backend.Upsert(ctx, s.index, docs); err != nil {
		return fmt.Errorf("index %d documents: %w", len(docs), err)
	}
	s.logger.Debug("search.index.ok", "count", len(docs), "first_id", docs[0].ID)
	return nil
}

// Search runs q after clamping limit and offset.
func (s *Service) Search(ctx context.Context, q Query) (entity.SearchResult, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return entity.SearchResult{}, err
	}
	res, err := s.backend.Query(ctx, s.index, q)
	if err != nil {
		return entity.SearchResult{}, fmt.Errorf("search %q: %w", q.Q, err)
	}
	if res.Hits == nil {
		res.Hits = []entity.SearchHit{}
	}
	res.Query, res.Limit, res.Offset = q.Q, q.Limit, q.Offset
	return res, nil
}

func (s *Service) Health(ctx context.Context) error {
	return s.backend.Health(ctx)
}
