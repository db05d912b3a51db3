// Package watch rebuilds the index when corpus files change.
//
// Passage identifiers are positional across the whole corpus, so there
// is no incremental update: any relevant change schedules a full
// rebuild. Rapid event bursts (editor save storms, rsync) are debounced
// into a single rebuild.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period required before a rebuild fires.
const DefaultDebounce = 2 * time.Second

// RebuildFunc runs one full index build.
type RebuildFunc func(ctx context.Context) error

// watchedExtensions mirrors the loader's supported document types.
var watchedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

// Watcher monitors a corpus directory and triggers debounced rebuilds.
type Watcher struct {
	corpusDir string
	debounce  time.Duration
	rebuild   RebuildFunc

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher over corpusDir. A non-positive debounce falls
// back to the default.
func New(corpusDir string, debounce time.Duration, rebuild RebuildFunc) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		corpusDir: corpusDir,
		debounce:  debounce,
		rebuild:   rebuild,
	}
}

// Run watches until the context is cancelled. Rebuild failures are
// logged and watching continues; the next change gets another chance.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addRecursive(fsw, w.corpusDir); err != nil {
		return err
	}

	rebuildCh := make(chan struct{}, 1)

	slog.Info("watch_started",
		slog.String("corpus_dir", w.corpusDir),
		slog.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, rebuildCh)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))

		case <-rebuildCh:
			slog.Info("rebuild_triggered", slog.String("corpus_dir", w.corpusDir))
			if err := w.rebuild(ctx); err != nil {
				slog.Error("rebuild_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// handleEvent filters events and arms the debounce timer. New
// directories are added to the watch set so nested corpora keep working.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, rebuildCh chan struct{}) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	// A created path may be a new subdirectory.
	if event.Op.Has(fsnotify.Create) {
		if err := w.addRecursive(fsw, event.Name); err == nil {
			// Directory (or file): either way fall through to scheduling.
			slog.Debug("watch_added", slog.String("path", event.Name))
		}
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	isDoc := watchedExtensions[ext]
	isDirEvent := ext == "" && (event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename))
	if !isDoc && !isDirEvent {
		return
	}

	slog.Debug("corpus_changed",
		slog.String("path", event.Name),
		slog.String("op", event.Op.String()))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case rebuildCh <- struct{}{}:
		default:
		}
	})
}

// addRecursive watches path and every non-hidden directory below it.
// Non-directory paths are ignored silently.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
