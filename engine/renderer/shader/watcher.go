package shader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
)

// Watcher records which shader source files changed on disk. The fsnotify goroutine only marks
// paths dirty; the render thread collects them with Drain and rebuilds pipelines itself.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *log.Logger

	mu      sync.Mutex
	watched map[string]bool
	dirty   map[string]bool
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts an fsnotify watcher. Call Close to stop it.
//
// Parameters:
//   - l: logger for watch errors, nil for the default
//
// Returns:
//   - *Watcher: the running watcher
//   - error: failure to create the OS watch handle
func NewWatcher(l *log.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader: failed to create watcher: %w", err)
	}
	w := &Watcher{
		fs:      fs,
		logger:  common.Coalesce(l, logger.Named("watch")),
		watched: map[string]bool{},
		dirty:   map[string]bool{},
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch starts tracking a shader file. The parent directory is watched so editors that
// replace files by rename are still seen.
//
// Parameters:
//   - path: the shader file
//
// Returns:
//   - error: the watcher is closed or the directory cannot be watched
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("shader: watcher already closed")
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("shader: failed to watch %q: %w", path, err)
	}
	w.watched[abs] = true
	return nil
}

// Drain returns the watched files changed since the previous call, sorted, and clears them.
func (w *Watcher) Drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.dirty) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.dirty))
	for p := range w.dirty {
		out = append(out, p)
	}
	clear(w.dirty)
	sort.Strings(out)
	return out
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return w.fs.Close()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(e)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("shader watch error", "err", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(e fsnotify.Event) {
	if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	abs, err := filepath.Abs(e.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[abs] {
		w.dirty[abs] = true
		w.logger.Debug("shader changed", "path", abs, "op", e.Op.String())
	}
}
