package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmgilman/actionbar/internal/host"
)

// DefaultDebounce coalesces bursts of file events (editors often write a
// file as remove+create+write).
const DefaultDebounce = 150 * time.Millisecond

// Watcher notifies subscribers when any watched file changes. It watches
// parent directories so that atomic replaces and late-created files are seen.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]bool
	subs   map[int]func()
	nextID int
	timer  *time.Timer
	closed bool

	done chan struct{}
}

// NewWatcher creates a watcher for the given files. Files that do not exist
// yet are still watched if their directory exists.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		fw:       fw,
		debounce: DefaultDebounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		subs:     make(map[int]func()),
		done:     make(chan struct{}),
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

// Add starts watching another file.
func (w *Watcher) Add(path string) error {
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.files[abs] = true
	dir := filepath.Dir(abs)
	if w.dirs[dir] {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		// Nothing to watch until the directory exists.
		return nil
	}
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// SetDebounce changes the coalescing window. Zero notifies on every event.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// OnDidChangeConfiguration registers fn to be called after a watched file
// changes. Disposing the result unsubscribes.
func (w *Watcher) OnDidChangeConfiguration(fn func()) host.Disposable {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return host.DisposeFunc(func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	})
}

// Subscribers returns the number of active subscriptions.
func (w *Watcher) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Close stops watching. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.handle(ev.Name)
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[filepath.Clean(name)] {
		return
	}
	if w.debounce <= 0 {
		go w.notify()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
