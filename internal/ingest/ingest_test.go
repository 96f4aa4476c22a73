package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/async"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/pipeline"
)

type fakeRunner struct {
	mu       sync.Mutex
	max      int64
	uploads  []pipeline.Upload
	fail     map[string]error
	degraded map[string]bool
}

func (f *fakeRunner) MaxUploadBytes() int64 { return f.max }

func (f *fakeRunner) Ingest(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, up)
	if int64(len(up.Data)) > f.max {
		return nil, common.NewAppError(common.CodeTooLarge, "too large", common.ErrTooLarge)
	}
	if err := f.fail[up.Filename]; err != nil {
		return nil, err
	}
	res := &pipeline.Result{Metadata: entity.DocumentMetadata{ID: "id-" + up.Filename, StoragePath: "documents/x/" + up.Filename}}
	if f.degraded[up.Filename] {
		res.IndexErr = errors.New("index down")
	}
	return res, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "nested", "b.md"), "beta")
	writeFile(t, filepath.Join(root, "nested", "c.txt"), "gamma")
	writeFile(t, filepath.Join(root, "skip.exe"), "binary")
	writeFile(t, filepath.Join(root, ".hidden", "d.txt"), "delta")
	writeFile(t, filepath.Join(root, "big.txt"), "0123456789abcdef")

	runner := &fakeRunner{
		max:      10,
		fail:     map[string]error{"c.txt": errors.New("storage down")},
		degraded: map[string]bool{"b.md": true},
	}
	ing := NewFSIngestor(runner, nil)

	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Equal(t, DirStats{Scanned: 5, Matched: 4, Succeeded: 2, Degraded: 1, Failed: 2}, stats)
	assert.Len(t, results, 4)

	for _, up := range runner.uploads {
		assert.Equal(t, constants.SourceScheduler, up.Source)
		assert.NotEqual(t, "d.txt", up.Filename)
	}
	// big.txt was read only up to max+1 bytes
	for _, up := range runner.uploads {
		if up.Filename == "big.txt" {
			assert.Len(t, up.Data, 11)
		}
	}
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	_, _, err := NewFSIngestor(&fakeRunner{max: 10}, nil).IngestDirectory(context.Background(), "  ", false)
	assert.Error(t, err)
}

func TestIngestPathRejectsExtension(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "x.exe")
	writeFile(t, p, "x")
	_, err := NewFSIngestor(&fakeRunner{max: 10}, nil).IngestPath(context.Background(), p)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestProcessFromQueue(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "queued.txt")
	writeFile(t, p, "hello")
	runner := &fakeRunner{max: 100}
	ing := NewFSIngestor(runner, nil)

	q := async.NewProcessorQueue(ing, nil, async.WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{Path: p}))
	q.Shutdown(context.Background())

	require.Len(t, runner.uploads, 1)
	assert.Equal(t, "queued.txt", runner.uploads[0].Filename)
	assert.Equal(t, "hello", string(runner.uploads[0].Data))
}

func TestWatcherEmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.txt"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	assert.Equal(t, filepath.Join(root, "existing.txt"), next())

	writeFile(t, filepath.Join(root, "ignored.exe"), "x")
	writeFile(t, filepath.Join(root, "fresh.md"), "new")
	assert.Equal(t, filepath.Join(root, "fresh.md"), next())

	cancel()
	for range events {
	}
}

func TestStartWatcherNeedsRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

func TestFeedEnqueuesUntilClosed(t *testing.T) {
	root := t.TempDir()
	paths := make(chan string, 3)
	for _, name := range []string{"a.txt", "b.md"} {
		p := filepath.Join(root, name)
		writeFile(t, p, name)
		paths <- p
	}
	close(paths)

	runner := &fakeRunner{max: 100}
	q := async.NewProcessorQueue(NewFSIngestor(runner, nil), nil, async.WithWorkers(2))
	n := Feed(context.Background(), paths, q, nil)
	q.Shutdown(context.Background())

	assert.Equal(t, 2, n)
	assert.Len(t, runner.uploads, 2)
}

func TestFeedStopsOnClosedQueue(t *testing.T) {
	paths := make(chan string, 1)
	paths <- "late.txt"
	close(paths)

	q := async.NewProcessorQueue(NewFSIngestor(&fakeRunner{max: 100}, nil), nil)
	q.Shutdown(context.Background())
	assert.Zero(t, Feed(context.Background(), paths, q, nil))
}
