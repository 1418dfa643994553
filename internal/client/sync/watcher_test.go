package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()

	tempDir := t.TempDir()
	// macos is funny =)
	// tmpdir lives in /var/folders but it's actually symlink to /private/var/folders
	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err, "failed to evaluate symlinks")

	return NewWatcher(tempDir), tempDir
}

func TestNewWatcher(t *testing.T) {
	w := NewWatcher("/test/path")

	assert.Equal(t, "/test/path", w.watchDir)
	assert.Equal(t, WatcherStopped, w.State())
	assert.NotNil(t, w.ignore)
	assert.Empty(t, w.ignore)
}

func TestWatcherStateMachine(t *testing.T) {
	w, _ := newTestWatcher(t)

	require.NoError(t, w.Start(t.Context()))
	assert.Equal(t, WatcherWatching, w.State())

	// a watching watcher cannot start again
	err := w.Start(t.Context())
	assert.ErrorIs(t, err, ErrWatcherNotStopped)

	w.Stop()
	assert.Equal(t, WatcherStopped, w.State())

	// stopping twice is harmless
	w.Stop()
	assert.Equal(t, WatcherStopped, w.State())

	// and a stopped watcher can start again
	require.NoError(t, w.Start(t.Context()))
	assert.Equal(t, WatcherWatching, w.State())
	w.Stop()
}

func TestWatcherBasicEvent(t *testing.T) {
	w, tempDir := newTestWatcher(t)

	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	events := w.Events()

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("hello world"), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for file event")
	}
}

func TestWatcherIgnoreOnce(t *testing.T) {
	w, tempDir := newTestWatcher(t)

	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	events := w.Events()

	testFile := filepath.Join(tempDir, "ignored.txt")
	w.IgnoreOnce(testFile)

	require.NoError(t, os.WriteFile(testFile, []byte("ignored content"), 0o644))

	// the armed write must be swallowed
	select {
	case event := <-events:
		assert.FailNow(t, "expected no events, but got event for path", event.Path())
	case <-time.After(500 * time.Millisecond):
	}

	// the entry is single-shot: the next write comes through
	require.NoError(t, os.WriteFile(testFile, []byte("visible content"), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for second write event")
	}
}

func TestWatcherDebounceBurst(t *testing.T) {
	w, tempDir := newTestWatcher(t)
	w.SetDebounceTimeout(100 * time.Millisecond)

	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	events := w.Events()

	// editors emit several write events per save
	testFile := filepath.Join(tempDir, "burst.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte("burst"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case event := <-events:
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for debounced event")
	}

	// the burst collapses to a single delivery
	select {
	case event := <-events:
		assert.FailNow(t, "expected a single event, got another for path", event.Path())
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherFilterPaths(t *testing.T) {
	w, tempDir := newTestWatcher(t)
	w.FilterPaths(func(path string) bool {
		return filepath.Ext(path) == ".tmp"
	})

	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	events := w.Events()

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "scratch.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "real.txt"), []byte("y"), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, filepath.Join(tempDir, "real.txt"), event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for unfiltered event")
	}
}

func TestWatcherStopFlushesPending(t *testing.T) {
	w, tempDir := newTestWatcher(t)
	w.SetDebounceTimeout(10 * time.Second)

	require.NoError(t, w.Start(t.Context()))
	events := w.Events()

	testFile := filepath.Join(tempDir, "pending.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0o644))

	// wait for the raw event to land in the debounce map
	assert.Eventually(t, func() bool {
		w.debounceMu.Lock()
		defer w.debounceMu.Unlock()
		return len(w.pendingEvents) > 0
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()

	// the pending event is flushed on exit, then the channel closes
	event, ok := <-events
	require.True(t, ok)
	assert.Equal(t, testFile, event.Path())

	_, ok = <-events
	assert.False(t, ok)

	// nothing lingers for the next run
	w.debounceMu.Lock()
	assert.Empty(t, w.pendingEvents)
	assert.Empty(t, w.eventTimers)
	w.debounceMu.Unlock()
}

func TestWatcherStopDuringFlush(t *testing.T) {
	// a debounce timer firing while Stop runs must never send after close
	for i := 0; i < 20; i++ {
		w, tempDir := newTestWatcher(t)
		w.SetDebounceTimeout(time.Millisecond)

		require.NoError(t, w.Start(t.Context()))

		testFile := filepath.Join(tempDir, "race.txt")
		require.NoError(t, os.WriteFile(testFile, []byte("x"), 0o644))

		time.Sleep(time.Millisecond)
		w.Stop()

		for range w.Events() {
		}
	}
}

func TestWatcherIgnoreEntryExpiry(t *testing.T) {
	w, _ := newTestWatcher(t)

	path := "/some/path.md"
	w.IgnoreOnceWithTimeout(path, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// an expired entry is discarded without matching
	assert.False(t, w.consumeIgnoreEntry(path))
}

func TestWatcherAutoCleanup(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.SetCleanupInterval(50 * time.Millisecond)

	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	w.IgnoreOnceWithTimeout("/a.md", 10*time.Millisecond)
	w.IgnoreOnceWithTimeout("/b.md", 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		w.ignoreMu.Lock()
		defer w.ignoreMu.Unlock()
		return len(w.ignore) == 0
	}, 2*time.Second, 20*time.Millisecond, "expired entries should be cleaned up")
}
