package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	require.NoError(t, ws.Bootstrap())
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestNewWorkspace(t *testing.T) {
	ws := newTestWorkspace(t)

	assert.Equal(t, filepath.Join(ws.Root, ".wikisync"), ws.MetadataDir)
	assert.Equal(t, filepath.Join(ws.MetadataDir, "tmp"), ws.TmpDir)
	assert.Equal(t, filepath.Join(ws.MetadataDir, "state.json"), ws.StatePath)

	assert.DirExists(t, ws.MetadataDir)
	assert.DirExists(t, ws.TmpDir)
}

func TestBootstrapSingleInstance(t *testing.T) {
	ws := newTestWorkspace(t)

	other, err := NewWorkspace(ws.Root)
	require.NoError(t, err)
	err = other.Bootstrap()
	assert.ErrorIs(t, err, ErrWorkspaceLocked)

	// releasing the lock lets the next instance in
	require.NoError(t, ws.Close())
	require.NoError(t, other.Bootstrap())
	require.NoError(t, other.Close())
}

func TestAbsPathRelPath(t *testing.T) {
	ws := newTestWorkspace(t)

	absPath := ws.AbsPath("notes/a.md")
	assert.Equal(t, filepath.Join(ws.Root, "notes", "a.md"), absPath)

	rel, err := ws.RelPath(absPath)
	require.NoError(t, err)
	assert.Equal(t, "notes/a.md", rel)
}

func TestRelPathOutsideRoot(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.RelPath("/etc/passwd")
	assert.Error(t, err)

	_, err = ws.RelPath(filepath.Dir(ws.Root))
	assert.Error(t, err)
}

func TestIsInternal(t *testing.T) {
	ws := newTestWorkspace(t)

	assert.True(t, ws.IsInternal(ws.MetadataDir))
	assert.True(t, ws.IsInternal(ws.StatePath))
	assert.True(t, ws.IsInternal(filepath.Join(ws.TmpDir, "x.tmp")))
	assert.False(t, ws.IsInternal(filepath.Join(ws.Root, "notes", "a.md")))
	// sibling with the metadata dir as a name prefix is not internal
	assert.False(t, ws.IsInternal(filepath.Join(ws.Root, ".wikisync-backup")))
}

func TestFilesWalk(t *testing.T) {
	ws := newTestWorkspace(t)

	mustWrite := func(rel string) {
		abs := filepath.Join(ws.Root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(rel), 0o644))
	}
	mustWrite("a.md")
	mustWrite("sub/b.md")
	mustWrite("sub/deep/c.txt")
	// internal files never surface
	require.NoError(t, os.WriteFile(ws.StatePath, []byte("{}"), 0o644))

	var got []string
	for path, err := range ws.Files() {
		require.NoError(t, err)
		rel, err := ws.RelPath(path)
		require.NoError(t, err)
		got = append(got, rel)
	}
	assert.ElementsMatch(t, []string{"a.md", "sub/b.md", "sub/deep/c.txt"}, got)
}

func TestFilesWalkStopsEarly(t *testing.T) {
	ws := newTestWorkspace(t)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(ws.Root, name), []byte("x"), 0o644))
	}

	seen := 0
	for range ws.Files() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestNormPath(t *testing.T) {
	assert.Equal(t, "a/b.md", NormPath("a/b.md"))
	assert.Equal(t, "a/b.md", NormPath("./a/b.md"))
	assert.Equal(t, "a/b.md", NormPath(filepath.Join("a", "b.md")))
}
