package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// IngestDirectory walks root, skips hidden entries when asked, and ingests
// every file with an allowed extension. Per-file failures do not stop the walk.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errRootRequired
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			stats.Scanned++
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res, err := i.IngestPath(ctx, path)
		if err != nil {
			i.logger.Warn("ingest.file.failed", "path", path, "error", err)
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			return nil
		}
		results = append(results, res)
		stats.Succeeded++
		if res.Degraded {
			stats.Degraded++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.dir.done", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "degraded", stats.Degraded, "failed", stats.Failed)
	return results, stats, nil
}
