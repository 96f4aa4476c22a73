package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/docindex/internal/async"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	Debounce    time.Duration
	SkipHidden  bool
	Logger      *slog.Logger
}

// StartWatcher emits paths of allowed files that are created or rewritten under
// the roots. Bursts of events for the same file within Debounce collapse to one.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	addDir := func(root string, onFile func(string)) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != root && cfg.SkipHidden && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if onFile != nil && AllowedExt(filepath.Ext(path)) {
				onFile(path)
			}
			return nil
		})
	}
	var initial []string
	var collect func(string)
	if cfg.InitialScan {
		collect = func(p string) { initial = append(initial, p) }
	}
	for _, r := range cfg.Roots {
		if err := addDir(r, collect); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		flush := func() bool {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						// files may land before the directory is watched
						err := addDir(e.Name, func(p string) { pending[p] = struct{}{} })
						if err != nil {
							logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
						}
						if len(pending) > 0 {
							timer.Reset(max(cfg.Debounce, time.Millisecond))
						}
						continue
					}
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if !AllowedExt(filepath.Ext(e.Name)) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				timer.Reset(cfg.Debounce)
			case <-timer.C:
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Feed enqueues every path from paths until the channel closes or ctx is done.
// It returns how many jobs were accepted.
func Feed(ctx context.Context, paths <-chan string, q async.Queue, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	n := 0
	for p := range paths {
		if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
			if ctx.Err() != nil || errors.Is(err, async.ErrQueueClosed) {
				logger.Info("drop folder feed stopped", "pending_path", p, "error", err)
				return n
			}
			logger.Warn("failed to enqueue file", "path", p, "error", err)
			continue
		}
		n++
	}
	return n
}
