// Package watcher watches the review directory and hands relabeled review files to a callback
// once writes to them settle.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
)

const defaultDebounce = 400 * time.Millisecond

// DefaultExtensions are the review file formats.
var DefaultExtensions = []string{".csv", ".xlsx"}

// Watcher watches one directory and invokes onChange for files whose content changed.
type Watcher struct {
	root        string
	extensions  []string
	onChange    func(path string) error
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	seen        map[string]string // path -> checksum of the last content handled successfully
	inflight    map[string]bool   // path -> a rerun was requested while onChange was running
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for file events and callback failures.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtensions restricts which files are handled. Empty means all files.
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) { w.extensions = exts }
}

// NewWatcher creates a watcher for root. onChange is called with the path of every created or
// rewritten file whose content differs from the last successfully handled version.
func NewWatcher(root string, onChange func(path string) error, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		extensions:  DefaultExtensions,
		onChange:    onChange,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		seen:        make(map[string]string),
		inflight:    make(map[string]bool),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Start creates the root if needed and starts watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.root); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.matchExtension(path) || temporary(filepath.Base(path)) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		w.debounceChange(path)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.forget(path)
	}
}

// temporary reports editor lock and hidden files.
func temporary(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		eNorm := strings.TrimPrefix(strings.ToLower(e), ".")
		extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
		if eNorm == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.process(path)
	})
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
	delete(w.seen, path)
}

// process runs onChange unless the content matches the last handled version. A failed callback
// leaves the file unmarked so the next save retries it. At most one callback runs per path; a call
// that arrives while one is running is folded into a single rerun afterwards.
func (w *Watcher) process(path string) {
	w.mu.Lock()
	if _, running := w.inflight[path]; running {
		w.inflight[path] = true
		w.mu.Unlock()
		return
	}
	w.inflight[path] = false
	w.mu.Unlock()

	for {
		w.handle(path)
		w.mu.Lock()
		if !w.inflight[path] {
			delete(w.inflight, path)
			w.mu.Unlock()
			return
		}
		w.inflight[path] = false
		w.mu.Unlock()
	}
}

func (w *Watcher) handle(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Debug("watcher cannot read file", zap.String("path", path), zap.Error(err))
		return
	}
	sum := storage.Checksum(data)
	w.mu.Lock()
	unchanged := w.seen[path] == sum
	w.mu.Unlock()
	if unchanged || w.onChange == nil {
		return
	}
	if err := w.onChange(path); err != nil {
		w.logger.Warn("review file not merged", zap.String("path", path), zap.Error(err))
		return
	}
	w.mu.Lock()
	w.seen[path] = sum
	w.mu.Unlock()
}

// SyncExistingFiles handles every matching file already in the root.
// Call this after Start to merge files saved while the watcher was not running.
func (w *Watcher) SyncExistingFiles() {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Debug("watcher cannot list root", zap.String("root", w.root), zap.Error(err))
		return
	}
	for _, e := range entries {
		path := filepath.Join(w.root, e.Name())
		if e.IsDir() || !w.matchExtension(path) || temporary(e.Name()) {
			continue
		}
		w.process(path)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
