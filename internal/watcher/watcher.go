package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a file, or the matching files of a directory, for changes
type Watcher struct {
	path       string
	onChange   func()
	debounce   time.Duration
	extensions []string
}

// New creates a new watcher. path may be a file or a directory.
func New(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithExtensions limits directory watching to files with these extensions
func (w *Watcher) WithExtensions(exts ...string) *Watcher {
	w.extensions = exts
	return w
}

// matches reports whether an event for name concerns the watched path
func (w *Watcher) matches(name string, isDir bool) bool {
	if !isDir {
		return filepath.Base(name) == filepath.Base(w.path)
	}
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Watch starts watching for changes. Bursts of events are collapsed into a
// single onChange call. It blocks until the context is cancelled or an
// error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	isDir := false
	if info, err := os.Stat(w.path); err == nil && info.IsDir() {
		isDir = true
	}

	// A single file is watched through its directory so that editors
	// replacing the file are noticed
	dir := w.path
	if !isDir {
		dir = filepath.Dir(w.path)
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}

	log.Printf("Watching %s for changes", w.path)

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	defer func() {
		mu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		mu.Unlock()
	}()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&relevant == 0 || !w.matches(event.Name, isDir) {
				continue
			}

			mu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Changed: %s", w.path)
				w.onChange()
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
