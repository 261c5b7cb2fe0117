package config

import (
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to configuration files made outside the
// application. Save replaces files by rename, so the parent directory is
// watched rather than the file itself.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	callbacks map[string]func(string)
	hashes    map[string]string
	timers    map[string]*time.Timer
	dirs      map[string]bool
	done      chan struct{}
}

// NewWatcher creates a watcher that waits for debounce of quiet before
// reporting a change.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:   w,
		debounce:  debounce,
		callbacks: make(map[string]func(string)),
		hashes:    make(map[string]string),
		timers:    make(map[string]*time.Timer),
		dirs:      make(map[string]bool),
		done:      make(chan struct{}),
	}, nil
}

// Watch registers callback for path. The file does not need to exist yet.
func (w *Watcher) Watch(path string, callback func(string)) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.callbacks[path] = callback
	w.hashes[path] = fileHash(path)
	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

// Start runs the event loop until Close.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.callbacks[path]; !ok {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.fire(path)
	})
}

func (w *Watcher) fire(path string) {
	hash := fileHash(path)

	w.mu.Lock()
	delete(w.timers, path)
	cb := w.callbacks[path]
	changed := hash != w.hashes[path]
	w.hashes[path] = hash
	w.mu.Unlock()

	if changed && cb != nil {
		cb(path)
	}
}

// Close stops the watcher and any pending callbacks.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// fileHash returns the content hash of path, or "" if it cannot be read.
func fileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
