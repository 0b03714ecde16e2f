// Package watch observes a results directory and triggers archive
// builds as the experiment runner drops result tarballs into it.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"

	"github.com/overheadlab/benchpack/internal/logfields"
	"github.com/overheadlab/benchpack/internal/testid"
)

// DefaultSettle is how long a result tarball must stop growing before
// it is considered fully written.
const DefaultSettle = 2 * time.Second

// BuildFunc archives the artifacts of one test set.
type BuildFunc func(ctx context.Context, setID string) error

// Watcher triggers Build for a test set whenever a new
// "<set-id>-<replica>.tar.gz" appears in ResultsDir and settles.
type Watcher struct {
	ResultsDir string
	Build      BuildFunc
	// Settle overrides DefaultSettle when positive.
	Settle time.Duration
	Logger pslog.Logger
}

// Run watches until ctx is cancelled. Builds run sequentially on the
// watch goroutine; events arriving during a build coalesce into the
// watcher's queue.
func (w *Watcher) Run(ctx context.Context) error {
	logger := logfields.WithSubsystem(w.Logger, "watch.results")
	if err := os.MkdirAll(w.ResultsDir, 0o755); err != nil {
		return fmt.Errorf("prepare results dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create results watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.ResultsDir); err != nil {
		return fmt.Errorf("watch results dir %q: %w", w.ResultsDir, err)
	}
	logger.Info("watching results directory", "path", w.ResultsDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			setID, replica, ok := testid.ParseResultName(event.Name)
			if !ok {
				continue
			}
			if err := w.awaitSettle(ctx, event.Name); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("result tarball vanished before settling", "file", filepath.Base(event.Name), "error", err)
				continue
			}
			logger.Info("result tarball arrived", "set", setID, "replica", replica)
			if err := w.Build(ctx, setID); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("archive build failed", "set", setID, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// awaitSettle polls the file size until it holds steady for one settle
// interval, so partially written tarballs are not archived.
func (w *Watcher) awaitSettle(ctx context.Context, path string) error {
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settle):
		}
	}
}
