package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/extract"
	"github.com/joseph-ayodele/docindex/internal/llm"
	"github.com/joseph-ayodele/docindex/internal/search"
	"github.com/joseph-ayodele/docindex/internal/storage"
)

type auditRecord struct {
	EventType string
	Details   map[string]any
	Severity  constants.Severity
	Source    string
	UserID    *string
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []auditRecord
}

func (r *recordingAuditor) LogEvent(_ context.Context, userID *string, eventType string, details map[string]any, sev constants.Severity, source string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, auditRecord{EventType: eventType, Details: details, Severity: sev, Source: source, UserID: userID})
	return "evt"
}

func (r *recordingAuditor) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubGenerator struct {
	answer string
	err    error
	block  bool
}

func (g stubGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.answer, g.err
}

func (stubGenerator) Model() string { return "stub-model" }

type failingStore struct{ storage.Store }

func (failingStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unreachable")
}

type failingIndex struct{}

func (failingIndex) Index(context.Context, ...entity.DocumentMetadata) error {
	return errors.New("search down")
}

type memLocal struct {
	mu   sync.Mutex
	docs map[string]entity.DocumentMetadata
	err  error
}

func (m *memLocal) Put(doc entity.DocumentMetadata) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]entity.DocumentMetadata{}
	}
	m.docs[doc.ID] = doc
	return nil
}

const kickoffAnswer = `{"title":"Project Alpha Kickoff","summary":"...","keywords":["alpha","kickoff"],"date":"2024-01-10"}`

var fixedNow = time.Date(2024, 1, 10, 14, 30, 5, 0, time.UTC)

type harness struct {
	p      *Pipeline
	store  *storage.BoltStore
	search *search.Service
	local  *memLocal
	audit  *recordingAuditor
}

func newHarness(t *testing.T, gen llm.Generator, timeout time.Duration, mutate func(*Deps)) *harness {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "objects.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:  store,
		search: search.NewService(search.NewMemoryBackend(), "documents", nil),
		local:  &memLocal{},
		audit:  &recordingAuditor{},
	}
	deps := Deps{
		Store:     store,
		Extractor: extract.NewExtractor(extract.Config{}, nil),
		Oracle:    llm.NewMetadataClient(gen, timeout, nil),
		Local:     h.local,
		Index:     h.search,
		Audit:     h.audit,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.p = New(Config{MaxUploadBytes: 64}, deps, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithSuffix(func() string { return "a1b2c3d4" }),
	)
	return h
}

func TestIngestEndToEnd(t *testing.T) {
	h := newHarness(t, stubGenerator{answer: kickoffAnswer}, time.Second, nil)
	data := []byte("Project Alpha kickoff 2024-01-10")
	ctx := common.WithUserID(context.Background(), "user-1")

	res, err := h.p.Ingest(ctx, Upload{Data: data, Filename: "kickoff notes.txt"})
	require.NoError(t, err)
	require.False(t, res.Degraded())

	m := res.Metadata
	assert.Equal(t, "2024-01-10", m.Date)
	assert.Equal(t, []string{"alpha", "kickoff"}, m.Keywords)
	assert.Equal(t, "Project Alpha Kickoff", m.Title)
	assert.Equal(t, "kickoff_notes-a1b2c3d4", m.ID)
	assert.Equal(t, ".txt", m.FileExtension)
	assert.Equal(t, "text/plain", m.MediaType)
	assert.Equal(t, "kickoff notes_20240110_143005_a1b2c3d4.txt", m.UniqueFilename)
	assert.Equal(t, "documents/2024/01/10/kickoff notes_20240110_143005_a1b2c3d4.txt", m.StoragePath)
	assert.Equal(t, "2024-01-10T14:30:05Z", m.UploadTimestamp)
	assert.Equal(t, "stub-model", m.AIModel)
	assert.Len(t, m.FileHash, 64)
	assert.Equal(t, int64(len(data)), m.FileSizeBytes)
	assert.Equal(t, 5, m.ProcessingTimeEstimate)

	stored, _, err := h.store.Get(context.Background(), m.StoragePath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, stored))
	assert.Contains(t, h.local.docs, m.ID)

	found, err := h.search.Search(context.Background(), search.Query{Q: "alpha"})
	require.NoError(t, err)
	require.Len(t, found.Hits, 1)
	assert.Equal(t, m.ID, found.Hits[0].Document.ID)

	require.Equal(t, []string{constants.EventDocumentUploaded}, h.audit.types())
	ev := h.audit.events[0]
	assert.Equal(t, "success", ev.Details["processing_status"])
	assert.Equal(t, m.StoragePath, ev.Details["storage_path"])
	assert.Equal(t, llm.SchemaStrict, ev.Details["oracle_schema"])
	assert.Equal(t, constants.SourceAPI, ev.Source)
	require.NotNil(t, ev.UserID)
	assert.Equal(t, "user-1", *ev.UserID)
}

func TestIngestOracleTimeout(t *testing.T) {
	h := newHarness(t, stubGenerator{block: true}, 20*time.Millisecond, nil)

	res, err := h.p.Ingest(context.Background(), Upload{Data: []byte("some text"), Filename: "slow.md"})
	require.NoError(t, err)
	assert.Equal(t, llm.AIErrorTitle, res.Metadata.Title)
	assert.Equal(t, []string{}, res.Metadata.Keywords)
	assert.Equal(t, llm.DateNotFound, res.Metadata.Date)
	assert.NotEmpty(t, res.Metadata.StoragePath)
	assert.Equal(t, constants.OracleAIError, res.OracleOutcome)
	require.Len(t, h.audit.events, 1)
	assert.NotContains(t, h.audit.events[0].Details, "oracle_schema")
}

func TestIngestRecordsLenientOracleAnswer(t *testing.T) {
	answer := `{"title":"Budget","summary":"Q1 numbers","keywords":"q1, budget","date":"2024-02-01"}`
	h := newHarness(t, stubGenerator{answer: answer}, time.Second, nil)

	res, err := h.p.Ingest(context.Background(), Upload{Data: []byte("Q1 budget"), Filename: "budget.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.Metadata.Keywords)
	require.Equal(t, []string{constants.EventDocumentUploaded}, h.audit.types())
	assert.Equal(t, llm.SchemaLenient, h.audit.events[0].Details["oracle_schema"])
}

func TestIngestSizeBoundaries(t *testing.T) {
	h := newHarness(t, stubGenerator{answer: kickoffAnswer}, time.Second, nil)
	ctx := context.Background()

	_, err := h.p.Ingest(ctx, Upload{Data: bytes.Repeat([]byte("a"), 64), Filename: "max.txt"})
	require.NoError(t, err)

	_, err = h.p.Ingest(ctx, Upload{Data: bytes.Repeat([]byte("a"), 65), Filename: "over.txt"})
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, common.HTTPStatus(err))
	code, _ := common.PublicError(err)
	assert.Equal(t, common.CodeTooLarge, code)

	_, err = h.p.Ingest(ctx, Upload{Data: nil, Filename: "empty.txt"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
	code, _ = common.PublicError(err)
	assert.Equal(t, common.CodeEmptyFile, code)

	// rejected uploads leave no trace
	assert.Equal(t, []string{constants.EventDocumentUploaded}, h.audit.types())
}

func TestIngestRejectsBadFilenames(t *testing.T) {
	h := newHarness(t, stubGenerator{answer: kickoffAnswer}, time.Second, nil)
	for _, name := range []string{"", "../etc/passwd.txt", "run.exe", "a\x00b.txt", "noext"} {
		t.Run(name, func(t *testing.T) {
			_, err := h.p.Ingest(context.Background(), Upload{Data: []byte("x"), Filename: name})
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
		})
	}
	objs, err := h.store.List(context.Background(), storage.DefaultPrefix)
	require.NoError(t, err)
	assert.Empty(t, objs)
	assert.Empty(t, h.audit.types())
}

func TestIngestStorageFailureIsFatal(t *testing.T) {
	h := newHarness(t, stubGenerator{answer: kickoffAnswer}, time.Second, func(d *Deps) {
		d.Store = failingStore{d.Store}
	})

	_, err := h.p.Ingest(context.Background(), Upload{Data: []byte("hello"), Filename: "a.txt"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, common.HTTPStatus(err))
	code, msg := common.PublicError(err)
	assert.Equal(t, common.CodeStorage, code)
	assert.NotContains(t, msg, "bucket unreachable")

	require.Equal(t, []string{constants.EventDocumentUploadError}, h.audit.types())
	assert.Equal(t, "bucket unreachable", h.audit.events[0].Details["error"])
	assert.Empty(t, h.local.docs)
}

func TestIngestSecondaryFailuresDegrade(t *testing.T) {
	h := newHarness(t, stubGenerator{answer: kickoffAnswer}, time.Second, func(d *Deps) {
		d.Index = failingIndex{}
		d.Local = &memLocal{err: errors.New("metadata file locked")}
	})

	res, err := h.p.Ingest(context.Background(), Upload{Data: []byte("hello"), Filename: "a.txt"})
	require.NoError(t, err)
	assert.True(t, res.Degraded())
	assert.Equal(t, constants.IngestStatusDegraded, res.Status())
	assert.EqualError(t, res.IndexErr, "search down")
	assert.EqualError(t, res.LocalPersistErr, "metadata file locked")

	stored, _, err := h.store.Get(context.Background(), res.Metadata.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(stored))

	ev := h.audit.events[0]
	assert.Equal(t, "degraded", ev.Details["processing_status"])
	assert.Equal(t, "search down", ev.Details["index_error"])
	assert.Equal(t, constants.SeverityWarning, ev.Severity)
}

func TestIngestEmptyExtractionUsesStandIn(t *testing.T) {
	var prompt string
	gen := promptCapture{answer: kickoffAnswer, seen: &prompt}
	h := newHarness(t, gen, time.Second, nil)

	// a docx that is not a zip archive extracts to nothing
	_, err := h.p.Ingest(context.Background(), Upload{Data: []byte("not a zip"), Filename: "broken.docx"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(prompt, "File of type docx with no extractable content. Name: broken.docx"))
}

type promptCapture struct {
	answer string
	seen   *string
}

func (g promptCapture) Generate(_ context.Context, prompt string) (string, error) {
	*g.seen = prompt
	return g.answer, nil
}

func (promptCapture) Model() string { return "capture" }

func TestDocumentID(t *testing.T) {
	cases := map[string]string{
		"report.pdf":              "report-x",
		"Q3 results (final).xlsx": "Q3_results_final-x",
		"résumé.docx":             "r_sum-x",
		"...md":                   "document-x",
		"my-notes_v2.txt":         "my-notes_v2-x",
	}
	for in, want := range cases {
		assert.Equal(t, want, DocumentID(in, "x"), in)
	}
	long := strings.Repeat("a", 300) + ".txt"
	assert.LessOrEqual(t, len(DocumentID(long, "x")), maxStemLen+2)
}
