// Package watcher rebuilds packages when their manifest files change.
//
// The watch daemon monitors a manifest directory with fsnotify. Writes are
// debounced per file (editors fire several events per save) and each settled
// change triggers a rebuild through the injected BuildFunc.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/pinbuild/internal/manifest"
)

// debounceDelay is how long a manifest file must stay quiet after a write
// before its rebuild fires.
const debounceDelay = 2 * time.Second

// BuildFunc rebuilds the package described by the manifest at path.
type BuildFunc func(path string) error

// Watcher rebuilds manifests in a directory as they change.
type Watcher struct {
	dir     string
	rebuild BuildFunc

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher for the manifest directory dir.
func New(dir string, rebuild BuildFunc) (*Watcher, error) {
	if rebuild == nil {
		return nil, fmt.Errorf("rebuild function cannot be nil")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", dir)
	}
	return &Watcher{
		dir:     dir,
		rebuild: rebuild,
		stopCh:  make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. Events are processed until Stop is called.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create filesystem watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("cannot watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.run()
	return nil
}

// run is the event loop.
func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watcher: filesystem error: %v\n", err)

		case <-w.stopCh:
			return
		}
	}
}

// handleEvent schedules a debounced rebuild for manifest writes.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !manifest.IsManifestFile(filepath.Base(event.Name)) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	path := event.Name
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		// The file may have been renamed away between the event and the
		// debounce firing.
		if _, err := os.Stat(path); err != nil {
			return
		}
		if err := w.rebuild(path); err != nil {
			fmt.Fprintf(os.Stderr, "watcher: rebuild of %s failed: %v\n", path, err)
		}
	})
}

// Stop halts the watcher and cancels pending rebuilds.
func (w *Watcher) Stop() error {
	close(w.stopCh)

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()
	return err
}
