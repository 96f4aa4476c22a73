package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/async"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/pipeline"
)

// Runner is the part of the pipeline the file ingestor drives.
type Runner interface {
	Ingest(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
	MaxUploadBytes() int64
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path        string
	DocumentID  string
	StoragePath string
	Degraded    bool
	Err         string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Degraded  uint32
	Failed    uint32
}

// FSIngestor feeds files from the local filesystem into the pipeline.
type FSIngestor struct {
	runner Runner
	source string
	logger *slog.Logger
}

var _ async.Processor = (*FSIngestor)(nil)

func NewFSIngestor(runner Runner, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{runner: runner, source: constants.SourceScheduler, logger: logger}
}

// IngestPath reads one file and runs it through the pipeline.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	out := FileResult{Path: path}
	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return out, common.InvalidInputErrorf("unsupported or missing extension: %q", filepath.Ext(abs))
	}

	data, err := readLimited(abs, i.runner.MaxUploadBytes())
	if err != nil {
		return out, err
	}

	res, err := i.runner.Ingest(ctx, pipeline.Upload{
		Data:     data,
		Filename: filepath.Base(abs),
		Source:   i.source,
	})
	if err != nil {
		return out, err
	}
	out.DocumentID = res.Metadata.ID
	out.StoragePath = res.Metadata.StoragePath
	out.Degraded = res.Degraded()
	return out, nil
}

// Process implements async.Processor for the drop-folder watcher.
func (i *FSIngestor) Process(ctx context.Context, job async.Job) error {
	ctx = common.WithRequestID(ctx, job.TraceID)
	res, err := i.IngestPath(ctx, job.Path)
	if err != nil {
		return err
	}
	i.logger.Info("ingest.file.ok", "path", job.Path, "id", res.DocumentID, "degraded", res.Degraded,
		"queued_ms", time.Since(job.SubmittedAt).Milliseconds())
	return nil
}

// readLimited reads at most max+1 bytes so the pipeline can reject oversize files
// without loading them whole.
func readLimited(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

// AllowedExt checks ext against the upload allow-list.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

var errRootRequired = errors.New("root path is required")
