package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-workers/logging"
)

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/d/cleaned_a.csv", Op: fsnotify.Create}))
	assert.True(t, relevant(fsnotify.Event{Name: "/d/cleaned_a.csv", Op: fsnotify.Rename}))
	assert.False(t, relevant(fsnotify.Event{Name: "/d/cleaned_a.csv", Op: fsnotify.Chmod}))
	assert.False(t, relevant(fsnotify.Event{Name: "/d/.tmp-cleaned_a.csv-123", Op: fsnotify.Write}))
}

func TestWatcher_SignalsOnChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, logging.Nop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cleaned_a.csv"), []byte("a\n1\n"), 0o644))

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), logging.Nop())
	assert.Error(t, err)
}
