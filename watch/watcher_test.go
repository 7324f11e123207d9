package watch

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, events <-chan Event, name string, op fsnotify.Op) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Name == name && ev.Op.Has(op) {
				return
			}
		case <-timeout:
			t.Fatalf("no %s event for %s", op, name)
		}
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	events := make(chan Event, 16)

	w, err := NewWatcher(WatcherConfig{
		Dir:     dir,
		OnEvent: func(e Event) { events <- e },
		Logger:  log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "dropped.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	waitFor(t, events, "dropped.txt", fsnotify.Create)

	require.NoError(t, os.Remove(path))
	waitFor(t, events, "dropped.txt", fsnotify.Remove)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{
		Dir:    filepath.Join(t.TempDir(), "missing"),
		Logger: log.New(io.Discard, "", 0),
	})
	assert.Error(t, err)
}
