package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*StateStore, string) {
	t.Helper()
	tempDir := t.TempDir()
	store := NewStateStore(filepath.Join(tempDir, "state.json"))
	require.NoError(t, store.Load())
	return store, tempDir
}

func TestStateStoreLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, 0, store.Count())
}

func TestStateStoreLoadCorrupt(t *testing.T) {
	tempDir := t.TempDir()
	statePath := filepath.Join(tempDir, "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o644))

	store := NewStateStore(statePath)
	err := store.Load()
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestStateStoreTrackAndReload(t *testing.T) {
	store, tempDir := newTestStore(t)
	statePath := filepath.Join(tempDir, "state.json")

	localPath := filepath.Join(tempDir, "notes", "a.md")
	require.NoError(t, store.TrackFile(localPath, "notes/a.md", "h1"))

	// every mutation persists synchronously
	assert.FileExists(t, statePath)

	reloaded := NewStateStore(statePath)
	require.NoError(t, reloaded.Load())

	tf, ok := reloaded.GetTracked(localPath)
	require.True(t, ok)
	assert.Equal(t, "notes/a.md", tf.RemotePath)
	assert.Equal(t, "h1", tf.Hash)
	assert.False(t, tf.LastSync.IsZero())
}

func TestStateStoreNoTempLeftovers(t *testing.T) {
	store, tempDir := newTestStore(t)

	require.NoError(t, store.TrackFile(filepath.Join(tempDir, "a.md"), "a.md", "h1"))
	require.NoError(t, store.TrackFile(filepath.Join(tempDir, "b.md"), "b.md", "h2"))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, "state.json", entry.Name())
	}
}

func TestStateStoreHasFileChanged(t *testing.T) {
	store, tempDir := newTestStore(t)

	localPath := filepath.Join(tempDir, "a.md")
	require.NoError(t, os.WriteFile(localPath, []byte("hello"), 0o644))

	hash, err := ComputeHash(localPath)
	require.NoError(t, err)
	require.NoError(t, store.TrackFile(localPath, "a.md", hash))

	// hash stability: tracked hash matches unchanged content
	changed, err := store.HasFileChanged(localPath)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(localPath, []byte("hello world"), 0o644))
	changed, err = store.HasFileChanged(localPath)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStateStoreHasFileChangedUntracked(t *testing.T) {
	store, tempDir := newTestStore(t)

	changed, err := store.HasFileChanged(filepath.Join(tempDir, "never-seen.md"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStateStoreHasFileChangedVanished(t *testing.T) {
	store, tempDir := newTestStore(t)

	localPath := filepath.Join(tempDir, "a.md")
	require.NoError(t, os.WriteFile(localPath, []byte("hello"), 0o644))
	require.NoError(t, store.TrackFile(localPath, "a.md", "h1"))
	require.NoError(t, os.Remove(localPath))

	_, err := store.HasFileChanged(localPath)
	assert.ErrorIs(t, err, ErrFileVanished)
}

func TestStateStoreGetFilePathAndUntrack(t *testing.T) {
	store, tempDir := newTestStore(t)

	localPath := filepath.Join(tempDir, "notes", "a.md")
	require.NoError(t, store.TrackFile(localPath, "notes/a.md", "h1"))

	got, ok := store.GetFilePath("notes/a.md")
	require.True(t, ok)
	assert.Equal(t, localPath, got)

	_, ok = store.GetFilePath("unknown/path.md")
	assert.False(t, ok)

	require.NoError(t, store.UntrackDocument("notes/a.md"))
	assert.False(t, store.IsFileTracked(localPath))

	// untracking an unknown document is a no-op
	require.NoError(t, store.UntrackDocument("notes/a.md"))
}

func TestStateStoreGetAllTrackedDocuments(t *testing.T) {
	store, tempDir := newTestStore(t)

	require.NoError(t, store.TrackFile(filepath.Join(tempDir, "a.md"), "a.md", "h1"))
	require.NoError(t, store.TrackFile(filepath.Join(tempDir, "b", "c.md"), "b/c.md", "h2"))

	assert.ElementsMatch(t, []string{"a.md", "b/c.md"}, store.GetAllTrackedDocuments())
}
