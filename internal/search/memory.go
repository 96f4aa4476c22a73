package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

// MemoryBackend is an in-process index for tests and single-node setups
// without a search server. It supports term matching, equality filters joined
// with AND, and the sortable attributes.
type MemoryBackend struct {
	mu      sync.RWMutex
	indexes map[string]map[string]entity.DocumentMetadata
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{indexes: map[string]map[string]entity.DocumentMetadata{}}
}

func (m *MemoryBackend) EnsureIndex(_ context.Context, name, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; !ok {
		m.indexes[name] = map[string]entity.DocumentMetadata{}
	}
	return nil
}

func (m *MemoryBackend) Upsert(_ context.Context, index string, docs []entity.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[index]
	if !ok {
		return fmt.Errorf("index %q not found", index)
	}
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document without %s", PrimaryKey)
		}
		d.Keywords = append([]string(nil), d.Keywords...)
		idx[d.ID] = d
	}
	return nil
}

type scored struct {
	doc   entity.DocumentMetadata
	score float64
}

func (m *MemoryBackend) Query(_ context.Context, index string, q Query) (entity.SearchResult, error) {
	clauses, err := parseFilter(q.Filter)
	if err != nil {
		return entity.SearchResult{}, err
	}
	terms := strings.Fields(strings.ToLower(q.Q))

	m.mu.RLock()
	idx, ok := m.indexes[index]
	if !ok {
		m.mu.RUnlock()
		return entity.SearchResult{}, fmt.Errorf("index %q not found", index)
	}
	var matches []scored
	for _, d := range idx {
		if !matchesFilter(d, clauses) {
			continue
		}
		score := termScore(d, terms)
		if len(terms) > 0 && score == 0 {
			continue
		}
		matches = append(matches, scored{doc: d, score: score})
	}
	m.mu.RUnlock()

	sortMatches(matches, q.Sort)

	res := entity.SearchResult{Hits: []entity.SearchHit{}, EstimatedTotalHits: int64(len(matches))}
	for i := q.Offset; i < len(matches) && i < q.Offset+q.Limit; i++ {
		hit := entity.SearchHit{Document: matches[i].doc}
		if len(terms) > 0 {
			s := matches[i].score
			hit.Score = &s
		}
		res.Hits = append(res.Hits, hit)
	}
	return res, nil
}

func (m *MemoryBackend) Health(context.Context) error { return nil }

// termScore is the fraction of query terms found in the searchable fields.
func termScore(d entity.DocumentMetadata, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hay := strings.ToLower(strings.Join([]string{d.Title, d.Summary, strings.Join(d.Keywords, " "), d.Filename}, " "))
	found := 0
	for _, t := range terms {
		if strings.Contains(hay, t) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

type clause struct {
	field, value string
}

var andSplitter = regexp.MustCompile(`(?i)\s+AND\s+`)

var filterClause = regexp.MustCompile(`^\s*([a-z_]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|(\S+))\s*$`)

// parseFilter accepts `field = value [AND field = value ...]`.
func parseFilter(expr string) ([]clause, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	var out []clause
	for _, part := range andSplitter.Split(expr, -1) {
		m := filterClause.FindStringSubmatch(part)
		if m == nil {
			return nil, common.InvalidInputErrorf("unsupported filter clause %q", strings.TrimSpace(part))
		}
		out = append(out, clause{field: m[1], value: m[2] + m[3] + m[4]})
	}
	return out, nil
}

func matchesFilter(d entity.DocumentMetadata, clauses []clause) bool {
	for _, c := range clauses {
		switch c.field {
		case "file_extension":
			if !strings.EqualFold(d.FileExtension, c.value) {
				return false
			}
		case "date":
			if d.Date != c.value {
				return false
			}
		case "media_type":
			if d.MediaType != c.value {
				return false
			}
		case "keywords":
			hit := false
			for _, k := range d.Keywords {
				if strings.EqualFold(k, c.value) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortMatches(matches []scored, sorts []string) {
	sort.SliceStable(matches, func(i, j int) bool {
		for _, s := range sorts {
			field, dir, _ := strings.Cut(s, ":")
			c := compareField(matches[i].doc, matches[j].doc, field)
			if c == 0 {
				continue
			}
			if dir == "desc" {
				return c > 0
			}
			return c < 0
		}
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].doc.ID < matches[j].doc.ID
	})
}

func compareField(a, b entity.DocumentMetadata, field string) int {
	switch field {
	case "upload_timestamp":
		return strings.Compare(a.UploadTimestamp, b.UploadTimestamp)
	case "date":
		return strings.Compare(a.Date, b.Date)
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "file_size_bytes":
		switch {
		case a.FileSizeBytes < b.FileSizeBytes:
			return -1
		case a.FileSizeBytes > b.FileSizeBytes:
			return 1
		}
	}
	return 0
}
