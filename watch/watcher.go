package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Event is one change seen in the watched directory.
type Event struct {
	Name string
	Op   fsnotify.Op
}

type WatcherConfig struct {
	// Dir is the directory to watch, not recursively.
	Dir     string
	OnEvent func(Event)
	Logger  *log.Logger
}

// Watcher logs changes to the storage directory, including ones made
// by other processes.
type Watcher struct {
	WatcherConfig
	watcher *fsnotify.Watcher
}

func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(config.Dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", config.Dir, err)
	}

	return &Watcher{
		WatcherConfig: config,
		watcher:       w,
	}, nil
}

// Run delivers events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.Logger.Printf("[watch]: Listening for changes in %s", w.Dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("[watch]: Error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// chmod alone does not change what the server lists or serves
	if event.Op == fsnotify.Chmod {
		return
	}

	name := filepath.Base(event.Name)
	w.Logger.Printf("[watch]: %s %s", event.Op, name)
	if w.OnEvent != nil {
		w.OnEvent(Event{Name: name, Op: event.Op})
	}
}
