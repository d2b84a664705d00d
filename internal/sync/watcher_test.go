package sync

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRelevant(t *testing.T) {
	w := &Watcher{logger: testLogger()}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"entry write", fsnotify.Event{Name: "/diary/2024-01-01.txt", Op: fsnotify.Write}, true},
		{"entry create", fsnotify.Event{Name: "/diary/2024-01-01.txt", Op: fsnotify.Create}, true},
		{"entry remove", fsnotify.Event{Name: "/diary/2024-01-01.txt", Op: fsnotify.Remove}, true},
		{"hidden file", fsnotify.Event{Name: "/diary/.swapfile", Op: fsnotify.Write}, false},
		{"editor backup", fsnotify.Event{Name: "/diary/2024-01-01.txt~", Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: "/diary/2024-01-01.txt", Op: fsnotify.Chmod}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.ev))
		})
	}
}

func TestWatcherTriggersOnChange(t *testing.T) {
	dir := t.TempDir()

	var triggers atomic.Int32

	w, err := NewWatcher(dir, func() { triggers.Add(1) }, testLogger())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-01.txt"), []byte("x"), 0o644))

	// One trigger after the debounce window, even though the write may
	// produce several events.
	require.Eventually(t, func() bool {
		return triggers.Load() == 1
	}, debounceWindow+3*time.Second, 50*time.Millisecond)
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), func() {}, testLogger())
	assert.Error(t, err)
}
