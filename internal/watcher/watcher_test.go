package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	fail  bool
}

func (r *recorder) onChange(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.fail {
		return errors.New("merge failed")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func (r *recorder) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, dir string, rec *recorder) *Watcher {
	t.Helper()
	w := NewWatcher(dir, rec.onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_ReviewFileTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	if err := writeFile(filepath.Join(dir, "ignored.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "1801.00001_v1_v2.csv")
	if err := writeFile(path, "pair_ID\n0\n"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rec.count() >= 1 }) {
		t.Fatal("callback not called")
	}
	time.Sleep(200 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.paths) != 1 || rec.paths[0] != path {
		t.Errorf("callbacks: got %v", rec.paths)
	}
}

func TestWatcher_UnchangedContentIsSkipped(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher(dir, rec.onChange)
	path := filepath.Join(dir, "p_v1_v2.csv")
	if err := writeFile(path, "a"); err != nil {
		t.Fatal(err)
	}

	w.process(path)
	w.process(path)
	if rec.count() != 1 {
		t.Fatalf("same content: got %d calls", rec.count())
	}
	if err := writeFile(path, "b"); err != nil {
		t.Fatal(err)
	}
	w.process(path)
	if rec.count() != 2 {
		t.Errorf("new content: got %d calls", rec.count())
	}
}

func TestWatcher_FailedCallbackIsRetried(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: true}
	w := NewWatcher(dir, rec.onChange)
	path := filepath.Join(dir, "p_v1_v2.xlsx")
	if err := writeFile(path, "a"); err != nil {
		t.Fatal(err)
	}

	w.process(path)
	rec.setFail(false)
	w.process(path)
	w.process(path)
	if rec.count() != 2 {
		t.Errorf("got %d calls, want 2", rec.count())
	}
}

func TestWatcher_OneCallbackPerPathAtATime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1801.00001_v1_v2.csv")
	if err := os.WriteFile(path, []byte("label\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var calls, running, overlap int32
	w := NewWatcher(dir, func(string) error {
		atomic.AddInt32(&calls, 1)
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.process(path)
		}()
	}
	wg.Wait()
	if atomic.LoadInt32(&overlap) != 0 {
		t.Error("callbacks for one path overlapped")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("callbacks for one unchanged file = %d, want 1", got)
	}
}

func TestWatcher_SaveDuringCallbackIsRerun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1801.00001_v1_v2.csv")
	if err := os.WriteFile(path, []byte("label\n\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var w *Watcher
	var calls int32
	w = NewWatcher(dir, func(string) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			// A reviewer saves again while the first merge is running.
			if err := os.WriteFile(path, []byte("label\n1\n"), 0644); err != nil {
				return err
			}
			w.process(path)
		}
		return nil
	})

	w.process(path)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("callbacks = %d, want 2 (the later save must not be dropped)", got)
	}
	w.mu.Lock()
	inflight := len(w.inflight)
	w.mu.Unlock()
	if inflight != 0 {
		t.Errorf("in-flight paths left behind: %d", inflight)
	}
}

func TestWatcher_ForgetOnRemove(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher(dir, rec.onChange)
	path := filepath.Join(dir, "p_v1_v2.csv")
	if err := writeFile(path, "a"); err != nil {
		t.Fatal(err)
	}
	w.process(path)
	w.forget(path)
	w.process(path)
	if rec.count() != 2 {
		t.Errorf("got %d calls, want 2", rec.count())
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a_v1_v2.csv", "b_v1_v2.xlsx", "notes.txt", "~$b_v1_v2.xlsx", ".hidden.csv"} {
		if err := writeFile(filepath.Join(dir, name), name); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	NewWatcher(dir, rec.onChange).SyncExistingFiles()
	if rec.count() != 2 {
		t.Errorf("got %v", rec.paths)
	}
}

func TestWatcher_StartCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "review", "inbox")
	w := startWatcher(t, root, &recorder{})
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
	if w.Root() != root {
		t.Errorf("Root() = %q", w.Root())
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.csv", DefaultExtensions, true},
		{"/a/b.XLSX", DefaultExtensions, true},
		{"/a/b.md", DefaultExtensions, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
