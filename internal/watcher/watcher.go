// Package watcher reloads the layered dictionary when one of its files
// changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"namelens/internal/dictionary"
	"namelens/internal/slogutil"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change to a dictionary file.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// OnReload is called after each reload with the events that caused it.
	OnReload func(report dictionary.LoadReport, events []Event)
	Logger   *slog.Logger
}

// Reloader is the part of *dictionary.Dictionary the watcher drives.
type Reloader interface {
	Sources() []dictionary.Source
	Reload() dictionary.LoadReport
}

// Watcher watches the directories holding dictionary layer files. A reload
// swaps the dictionary snapshot; translations already running keep theirs.
type Watcher struct {
	dict   Reloader
	opts   Options
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	batch  *BatchDebouncer

	mu      sync.Mutex
	targets []target
	dirs    map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// target is one source path; glob sources match with doublestar.
type target struct {
	path string
	glob bool
	base string
}

// New creates a watcher for dict. Call Start to begin watching.
func New(dict Reloader, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	w := &Watcher{
		dict:   dict,
		opts:   opts,
		logger: slogutil.OrDiscard(opts.Logger),
		fsw:    fsw,
		dirs:   make(map[string]bool),
	}
	w.batch = NewBatchDebouncer(opts.Debounce, w.reload)
	return w, nil
}

// Start watches the directories of the current sources until ctx is done
// or Stop is called. Directories that do not exist yet are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	for _, src := range w.dict.Sources() {
		t := newTarget(src.Path)
		w.targets = append(w.targets, t)
		if t.glob {
			w.addTree(t.base)
		} else {
			w.addDir(filepath.Dir(t.path))
		}
	}
	watched := len(w.dirs)
	w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("Dictionary watcher started",
		"sources", len(w.targets),
		"dirs", watched,
		"debounce", w.opts.Debounce,
	)
	return nil
}

// Stop ends watching and drops pending events.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsw.Close()
	w.wg.Wait()
	w.batch.Cancel()
	return err
}

// WatchedDirs returns the watched directories.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	return out
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.underGlob(path) {
				w.addTree(path)
			}
			w.mu.Unlock()
			return
		}
	}

	w.mu.Lock()
	relevant := w.matches(path)
	w.mu.Unlock()
	if !relevant {
		return
	}

	typ := EventModify
	switch {
	case ev.Has(fsnotify.Create):
		typ = EventCreate
	case ev.Has(fsnotify.Remove):
		typ = EventDelete
	case ev.Has(fsnotify.Rename):
		typ = EventRename
	case ev.Has(fsnotify.Write):
		typ = EventModify
	default:
		return
	}
	w.batch.Add(Event{Type: typ, Path: path, Timestamp: time.Now()})
}

func (w *Watcher) reload(events []Event) {
	report := w.dict.Reload()
	w.logger.Info("Reloaded dictionary",
		"version", report.Version,
		"layers", len(report.Layers),
		"skipped", len(report.Skipped),
		"changes", len(events),
	)
	if w.opts.OnReload != nil {
		w.opts.OnReload(report, events)
	}
}

func (w *Watcher) matches(path string) bool {
	for _, t := range w.targets {
		if t.glob {
			if ok, _ := doublestar.PathMatch(t.path, path); ok {
				return true
			}
			continue
		}
		if t.path == path {
			return true
		}
	}
	return false
}

func (w *Watcher) underGlob(dir string) bool {
	for _, t := range w.targets {
		if !t.glob {
			continue
		}
		rel, err := filepath.Rel(t.base, dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it. Callers hold w.mu.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			w.addDir(path)
		}
		return nil
	})
}

// addDir watches one directory. Callers hold w.mu.
func (w *Watcher) addDir(dir string) {
	dir = filepath.Clean(dir)
	if w.dirs[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Debug("Not watching directory", "dir", dir, "error", err)
		return
	}
	w.dirs[dir] = true
}

func newTarget(path string) target {
	path = filepath.Clean(path)
	base, pattern := doublestar.SplitPattern(filepath.ToSlash(path))
	if pattern == "" || base == filepath.ToSlash(path) || !hasMeta(pattern) {
		return target{path: path}
	}
	return target{path: path, glob: true, base: filepath.FromSlash(base)}
}

func hasMeta(p string) bool {
	for _, r := range p {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
