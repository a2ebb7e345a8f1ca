// Package watch observes a morph source tree and reports changed source
// units, debounced, so a regeneration loop sees one batch per editing
// burst instead of one event per write.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the batching window applied when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// BatchFunc receives the sorted set of changed .morph paths after the
// debounce window closes.
type BatchFunc func(paths []string)

// Watcher watches a directory tree for morph source changes.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	onBatch  BatchFunc

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]bool
}

// New creates a watcher over root. The watcher recursively registers
// every non-hidden directory; directories created later are picked up
// from their create events.
func New(root string, debounce time.Duration, logger *slog.Logger, onBatch BatchFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		logger:   logger,
		onBatch:  onBatch,
		fsw:      fsw,
		pending:  make(map[string]bool),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// Run processes events until ctx is done or the watcher is closed. It
// blocks; callers usually run it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	// A created directory must be registered before events inside it can
	// be seen.
	if event.Op.Has(fsnotify.Create) && !strings.HasPrefix(name, ".") {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
			return
		}
	}

	if !strings.HasSuffix(name, ".morph") || strings.HasPrefix(name, ".") {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("source changed", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush delivers the accumulated batch.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.logger.Info("source batch ready", "count", len(paths))
	if w.onBatch != nil {
		w.onBatch(paths)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Close stops the underlying filesystem watcher. Run returns after Close.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
