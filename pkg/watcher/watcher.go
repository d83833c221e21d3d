// Package watcher turns fsnotify's per-directory notifications into
// debounced, ordered batches of normalized events over a whole subtree.
//
// The watcher owns the fsnotify watch set: directories discovered at
// scan time or created later are added, removed directories are dropped.
// Ignore globs prune both the initial scan and live events.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/smolder/pkg/debug"
	"github.com/vanderheijden86/smolder/pkg/heat"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNotDirectory   = errors.New("watch target is not a directory")
)

// Event is one normalized filesystem change.
type Event struct {
	Kind  heat.Event // add, addDir, change, unlink, unlinkDir
	Path  string     // absolute
	IsDir bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the batch coalescing window.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithIgnoreGlobs sets the ignore patterns. A pattern matching an
// entry's name or root-relative path drops it; a matching directory
// prunes its whole subtree.
func WithIgnoreGlobs(globs []string) Option {
	return func(w *Watcher) {
		w.ignore = globs
	}
}

// Watcher monitors a directory subtree.
type Watcher struct {
	root             string
	ignore           []string
	debounceDuration time.Duration

	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer

	batchCh chan []Event
	errCh   chan error

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	pending  []Event
	knownDir map[string]bool // watched directories, for classifying removals
}

// New creates a watcher for the given directory.
func New(root string, opts ...Option) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	w := &Watcher{
		root:             absRoot,
		debounceDuration: DefaultDebounceDuration,
		batchCh:          make(chan []Event, 16),
		errCh:            make(chan error, 16),
		knownDir:         make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Scan walks the subtree and returns the initial inventory as add/addDir
// events, ignore globs applied. It can be called before Start.
func (w *Watcher) Scan() ([]Event, error) {
	var events []Event
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if path == w.root {
			return nil
		}
		if w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		kind := heat.EventAdd
		if d.IsDir() {
			kind = heat.EventAddDir
		}
		events = append(events, Event{Kind: kind, Path: path, IsDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Start begins watching. Failure to watch the root is fatal; failures on
// subdirectories are reported on Errors and skipped.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return err
	}
	w.fsWatcher = fsw
	w.knownDir[w.root] = true
	w.ctx, w.cancel = context.WithCancel(context.Background())

	// Watch every existing subdirectory.
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == w.root {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.reportError(err)
			return nil
		}
		w.knownDir[path] = true
		return nil
	})

	go w.loop()
	w.started = true
	debug.Log("watching %s (%d dirs)", w.root, len(w.knownDir))
	return nil
}

// Stop stops watching. Pending debounced events are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	w.fsWatcher.Close()
	w.fsWatcher = nil
	w.debouncer.Cancel()
	w.pending = nil
	w.started = false
}

// Batches returns the channel of debounced event batches, in arrival
// order within each batch.
func (w *Watcher) Batches() <-chan []Event {
	return w.batchCh
}

// Errors returns the channel of transient watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errCh
}

func (w *Watcher) loop() {
	w.mu.Lock()
	fsw := w.fsWatcher
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handle normalizes one fsnotify event and queues it for the next flush.
func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.ignored(path) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		info, err := os.Stat(path)
		if err != nil {
			// Gone before we could look: treat as a short-lived file.
			w.enqueue(Event{Kind: heat.EventAdd, Path: path})
			return
		}
		if info.IsDir() {
			w.addDirectory(path)
			return
		}
		w.enqueue(Event{Kind: heat.EventAdd, Path: path})

	case ev.Op&fsnotify.Write != 0:
		w.enqueue(Event{Kind: heat.EventChange, Path: path})

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename is an unlink of the old path; the new path arrives as
		// its own Create.
		w.removePath(path)
	}
	// Chmod is noise.
}

// addDirectory watches a newly created directory and synthesizes add
// events for contents that appeared before the watch was in place.
func (w *Watcher) addDirectory(path string) {
	w.mu.Lock()
	fsw := w.fsWatcher
	if fsw == nil {
		w.mu.Unlock()
		return
	}
	if err := fsw.Add(path); err != nil {
		w.mu.Unlock()
		w.reportError(err)
		return
	}
	w.knownDir[path] = true
	w.mu.Unlock()

	w.enqueue(Event{Kind: heat.EventAddDir, Path: path, IsDir: true})

	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		if w.ignored(child) {
			continue
		}
		if e.IsDir() {
			w.addDirectory(child)
		} else {
			w.enqueue(Event{Kind: heat.EventAdd, Path: child})
		}
	}
}

// removePath queues an unlink for path, classifying it as a directory if
// we were watching it, and forgets any watches under it.
func (w *Watcher) removePath(path string) {
	w.mu.Lock()
	wasDir := w.knownDir[path]
	if wasDir {
		delete(w.knownDir, path)
		// fsnotify drops the watch for deleted paths itself; forget any
		// known subdirectories so later removals classify as files.
		prefix := path + string(filepath.Separator)
		for dir := range w.knownDir {
			if strings.HasPrefix(dir, prefix) {
				delete(w.knownDir, dir)
			}
		}
	}
	w.mu.Unlock()

	kind := heat.EventUnlink
	if wasDir {
		kind = heat.EventUnlinkDir
	}
	w.enqueue(Event{Kind: kind, Path: path, IsDir: wasDir})
}

// enqueue appends an event to the pending batch and (re)arms the
// debouncer.
func (w *Watcher) enqueue(e Event) {
	w.mu.Lock()
	w.pending = append(w.pending, e)
	w.mu.Unlock()
	w.debouncer.Trigger(w.flush)
}

// flush hands the pending batch to the consumer, preserving arrival
// order.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.started || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = nil
	ctx := w.ctx
	w.mu.Unlock()

	select {
	case w.batchCh <- batch:
	case <-ctx.Done():
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errCh <- err:
	default:
	}
}

// ignored reports whether path matches any ignore glob, by base name, by
// root-relative path, or by any path segment (so "node_modules" prunes
// the whole subtree).
func (w *Watcher) ignored(path string) bool {
	if len(w.ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)

	for _, pat := range w.ignore {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
		for _, seg := range strings.Split(rel, "/") {
			if ok, err := doublestar.Match(pat, seg); err == nil && ok {
				return true
			}
		}
	}
	return false
}
