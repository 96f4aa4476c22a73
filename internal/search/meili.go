package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/joseph-ayodele/docindex/internal/entity"
)

type MeiliConfig struct {
	Host    string
	APIKey  string
	Timeout time.Duration
}

// MeiliBackend talks to a Meilisearch server.
type MeiliBackend struct {
	client *meilisearch.Client
	logger *slog.Logger
}

var _ Backend = (*MeiliBackend)(nil)

func NewMeiliBackend(cfg MeiliConfig, logger *slog.Logger) *MeiliBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:    cfg.Host,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	return &MeiliBackend{client: client, logger: logger}
}

func (b *MeiliBackend) EnsureIndex(ctx context.Context, name, primaryKey string) error {
	_, err := b.client.GetIndex(name)
	if err != nil {
		var merr *meilisearch.Error
		if !errors.As(err, &merr) || merr.StatusCode != http.StatusNotFound {
			return fmt.Errorf("get index: %w", err)
		}
		task, err := b.client.CreateIndex(&meilisearch.IndexConfig{Uid: name, PrimaryKey: primaryKey})
		if err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		if err := b.wait(ctx, task.TaskUID); err != nil {
			return err
		}
		b.logger.Info("search.meili.index_created", "index", name, "primary_key", primaryKey)
	}
	return b.applySettings(ctx, name)
}

// applySettings sets filterable and sortable attributes and waits until both
// are live, so the first filtered or sorted query does not race them.
func (b *MeiliBackend) applySettings(ctx context.Context, name string) error {
	idx := b.client.Index(name)
	filterable := append([]string(nil), FilterableAttributes...)
	task, err := idx.UpdateFilterableAttributes(&filterable)
	if err != nil {
		return fmt.Errorf("set filterable attributes: %w", err)
	}
	if err := b.wait(ctx, task.TaskUID); err != nil {
		return fmt.Errorf("set filterable attributes: %w", err)
	}
	sortable := append([]string(nil), SortableAttributes...)
	task, err = idx.UpdateSortableAttributes(&sortable)
	if err != nil {
		return fmt.Errorf("set sortable attributes: %w", err)
	}
	if err := b.wait(ctx, task.TaskUID); err != nil {
		return fmt.Errorf("set sortable attributes: %w", err)
	}
	return nil
}

func (b *MeiliBackend) Upsert(ctx context.Context, index string, docs []entity.DocumentMetadata) error {
	task, err := b.client.Index(index).AddDocuments(docs, PrimaryKey)
	if err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return b.wait(ctx, task.TaskUID)
}

func (b *MeiliBackend) Query(_ context.Context, index string, q Query) (entity.SearchResult, error) {
	req := &meilisearch.SearchRequest{
		Limit:                 int64(q.Limit),
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"title", "summary"},
		HighlightPreTag:       highlightPreTag,
		HighlightPostTag:      highlightPostTag,
	}
	if q.Filter != "" {
		req.Filter = q.Filter
	}
	if len(q.Sort) > 0 {
		req.Sort = q.Sort
	}

	resp, err := b.client.Index(index).Search(q.Q, req)
	if err != nil {
		return entity.SearchResult{}, err
	}

	out := entity.SearchResult{
		Hits:               make([]entity.SearchHit, 0, len(resp.Hits)),
		EstimatedTotalHits: resp.EstimatedTotalHits,
		ProcessingTimeMs:   resp.ProcessingTimeMs,
	}
	for _, h := range resp.Hits {
		hit, err := decodeHit(h)
		if err != nil {
			b.logger.Warn("search.meili.bad_hit", "error", err)
			continue
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func (b *MeiliBackend) Health(context.Context) error {
	h, err := b.client.Health()
	if err != nil {
		return err
	}
	if h.Status != "available" {
		return fmt.Errorf("meilisearch status %q", h.Status)
	}
	return nil
}

func (b *MeiliBackend) wait(ctx context.Context, taskUID int64) error {
	task, err := b.client.WaitForTask(taskUID, meilisearch.WaitParams{Context: ctx, Interval: 100 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("wait for task %d: %w", taskUID, err)
	}
	if task.Status == meilisearch.TaskStatusFailed {
		return fmt.Errorf("task %d failed: %s", taskUID, task.Error.Message)
	}
	return nil
}

// decodeHit turns a raw hit into a typed document; _formatted becomes Highlights.
func decodeHit(raw any) (entity.SearchHit, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return entity.SearchHit{}, err
	}
	var envelope struct {
		entity.DocumentMetadata
		Formatted    map[string]any `json:"_formatted"`
		RankingScore *float64       `json:"_rankingScore"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return entity.SearchHit{}, err
	}
	hit := entity.SearchHit{Document: envelope.DocumentMetadata, Score: envelope.RankingScore}
	if hit.Document.Keywords == nil {
		hit.Document.Keywords = []string{}
	}
	for _, field := range []string{"title", "summary"} {
		if s, ok := envelope.Formatted[field].(string); ok && s != "" {
			if hit.Highlights == nil {
				hit.Highlights = map[string]string{}
			}
			hit.Highlights[field] = s
		}
	}
	return hit, nil
}
