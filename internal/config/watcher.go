package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies when the stack profile or env file changes on disk.
// Editors replace files rather than rewriting them in place, so the watch
// is on the parent directories and events are filtered by path.
type Watcher struct {
	fw       *fsnotify.Watcher
	paths    map[string]bool
	debounce time.Duration
	onChange func(path string)
	done     chan struct{}
}

// Watch starts watching the given files. onChange fires at most once per
// debounce window per file, from a background goroutine.
func Watch(paths []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fw:       fw,
		paths:    make(map[string]bool, len(paths)),
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		if _, err := os.Stat(abs); err != nil {
			continue // missing files (e.g. no .env) are simply not watched
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	pending := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.paths[abs] {
				continue
			}
			if t, exists := pending[abs]; exists {
				t.Reset(w.debounce)
				continue
			}
			path := abs
			pending[abs] = time.AfterFunc(w.debounce, func() {
				w.onChange(path)
			})

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}

		case <-w.done:
			for _, t := range pending {
				t.Stop()
			}
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.fw.Close()
}
