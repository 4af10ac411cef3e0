// Package watch implements a debounced recursive file-system watcher
// used by the `check --watch` verb to re-run analysis as source files
// change, grounded on the teacher's internal/indexing file watcher.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/sentrygo/internal/diagnose"
)

// Watcher recursively watches a root directory and invokes onChange once
// per debounce window after the last filesystem event settles.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// New creates a Watcher rooted at root. debounce controls how long to
// wait after the last event before firing onChange, coalescing bursts
// of writes (editors often emit several events per save) into one run.
func New(root string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, root: root, debounce: debounce}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".sentrygo-cache" || info.Name() == ".git" {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Run blocks, calling onChange after each debounced batch of events,
// until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}, onChange func()) {
	defer w.fsw.Close()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev, onChange)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			diagnose.LogIndex("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, onChange func()) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addTree(ev.Name)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, onChange)
}
