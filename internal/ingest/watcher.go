package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid create/write bursts
	Logger      *slog.Logger
}

// StartWatcher emits paths of supported files as they are created or
// rewritten under the roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("ingest.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		var (
			mu      sync.Mutex
			pending = map[string]struct{}{}
			ready   = make(chan struct{}, 1)
			timer   *time.Timer
		)
		signal := func() {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
		flush := func() {
			mu.Lock()
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
				delete(pending, p)
			}
			mu.Unlock()
			for _, p := range batch {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case <-ready:
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					// new directories are watched too; files just fail to Add
					_ = w.Add(e.Name)
				}
				if !watchable(e.Name) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				mu.Unlock()
				if cfg.Debounce > 0 {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(cfg.Debounce, signal)
				} else {
					flush()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchable(path string) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path))
}
