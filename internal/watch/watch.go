// Package watch translates filesystem change events into IndexRequests
// the pipeline can enqueue, the way the teacher's FileWatcher drives
// incremental reindexing — minus its debounce/batch-progress machinery,
// which belonged to that tool's own whole-project rescan model rather
// than this backend's per-file pipeline.
package watch

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/cqgo/internal/config"
	"github.com/standardbeagle/cqgo/internal/debug"
	"github.com/standardbeagle/cqgo/internal/types"
)

// Watcher recursively watches a project root and emits IndexRequests for
// create/write events on paths the config includes.
type Watcher struct {
	fsw    *fsnotify.Watcher
	cfg    *config.Config
	events chan types.IndexRequest
	errors chan error
	done   chan struct{}
}

// New starts watching root; events for eligible paths arrive on
// Events(), filesystem errors on Errors().
func New(root string, cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:    fsw,
		cfg:    cfg,
		events: make(chan types.IndexRequest, 64),
		errors: make(chan error, 16),
		done:   make(chan struct{}),
	}
	if err := w.addWatches(root); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if !w.cfg.PathEligible(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			debug.LogPipeline("watch: failed to add watch for %s: %v\n", path, err)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil || info.IsDir() {
		return
	}
	if !w.cfg.PathEligible(ev.Name) {
		return
	}
	contents, err := os.ReadFile(ev.Name)
	if err != nil {
		return
	}
	req := types.IndexRequest{Path: ev.Name, Contents: string(contents)}
	select {
	case w.events <- req:
	case <-w.done:
	}
}

func (w *Watcher) Events() <-chan types.IndexRequest { return w.events }
func (w *Watcher) Errors() <-chan error              { return w.errors }

// Close stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
