package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/logging"
)

// DefaultQuietPeriod is how long a file must stay unchanged before the
// watcher imports it.
const DefaultQuietPeriod = 500 * time.Millisecond

// WatchEvent is one import attempt triggered by a filesystem change.
type WatchEvent struct {
	Path   string
	Result *ImportResult
	Err    error
}

// Watcher imports audio files as they land in the library directory.
// Imports wait for a quiet period after the last write, so files still
// being copied are never probed half-written.
type Watcher struct {
	imp   *Importer
	log   *logging.Logger
	dir   string
	quiet time.Duration

	events chan WatchEvent

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	timers  map[string]*time.Timer
	running bool
}

// NewWatcher creates a watcher over dir. quiet <= 0 uses the default.
func NewWatcher(imp *Importer, dir string, quiet time.Duration, log *logging.Logger) *Watcher {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{
		imp:    imp,
		log:    log,
		dir:    dir,
		quiet:  quiet,
		events: make(chan WatchEvent, 16),
	}
}

// Events delivers one event per import attempt. Slow consumers miss
// events rather than blocking the watcher.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting library watcher: %w", err)
	}
	if err := fs.Add(w.dir); err != nil {
		fs.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.fs = fs
	w.timers = make(map[string]*time.Timer)
	w.running = true
	go w.run(fs)

	w.log.Infof("watching %s for new audio", w.dir)
	return nil
}

// Stop halts the watcher and cancels pending imports.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.fs.Close()
}

func (w *Watcher) run(fs *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !SupportedExt(ev.Name) {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.log.Warnf("library watcher: %v", err)
		}
	}
}

// schedule arms (or re-arms) the quiet timer for a path. Every write
// pushes the import further out.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.quiet)
		return
	}
	w.timers[path] = time.AfterFunc(w.quiet, func() {
		w.importSettled(path)
	})
}

func (w *Watcher) importSettled(path string) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.mu.Unlock()

	res, err := w.imp.ImportFile(context.Background(), path, ImportOptions{})
	event := WatchEvent{Path: path, Result: res, Err: err}
	if err == errors.ErrDuplicateTrack {
		event.Err = nil
	} else if err != nil {
		w.log.Warnf("auto-import %s: %v", path, err)
	}

	select {
	case w.events <- event:
	default:
	}
}
