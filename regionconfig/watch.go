package regionconfig

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a bootstrap document whenever it changes on disk, the way
// internal/runtime/vfs.FSNotifyWatcher turns raw fsnotify events into a
// typed event stream for its callers.
type Watcher struct {
	w      *fsnotify.Watcher
	path   string
	events chan *Document
	errs   chan error
}

// WatchFile starts watching path for writes, parsing a fresh Document on
// each one. The caller reads Events() to pick up reloaded documents and
// Errs() for parse or filesystem errors; it is responsible for rebuilding
// or reconfiguring its Heap in response (Bootstrap builds a new Heap from
// scratch, since Capacity cannot be changed on a live one).
func WatchFile(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("regionconfig: new watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("regionconfig: watch %s: %w", path, err)
	}

	watcher := &Watcher{
		w:      w,
		path:   path,
		events: make(chan *Document, 1),
		errs:   make(chan error, 1),
	}
	go watcher.loop()
	return watcher, nil
}

func (watcher *Watcher) loop() {
	for {
		select {
		case ev, ok := <-watcher.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			doc, err := Load(watcher.path)
			if err != nil {
				watcher.errs <- err
				continue
			}
			watcher.events <- doc
		case err, ok := <-watcher.w.Errors:
			if !ok {
				return
			}
			watcher.errs <- err
		}
	}
}

// Events delivers a freshly parsed Document each time the watched file is
// written.
func (watcher *Watcher) Events() <-chan *Document { return watcher.events }

// Errs delivers parse and filesystem errors encountered while watching.
func (watcher *Watcher) Errs() <-chan error { return watcher.errs }

// Close stops the watcher.
func (watcher *Watcher) Close() error { return watcher.w.Close() }
