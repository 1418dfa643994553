package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/wikisync/wikisync/internal/utils"
)

const (
	metadataDir = ".wikisync"
	tmpDir      = "tmp"
	lockFile    = "wikisync.lock"
)

var (
	ErrWorkspaceLocked = errors.New("watch root locked by another process")
)

// Workspace is the local directory tree being mirrored against a space.
type Workspace struct {
	Root        string
	MetadataDir string
	TmpDir      string
	StatePath   string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", rootDir, err)
	}

	metaDir := filepath.Join(root, metadataDir)

	return &Workspace{
		Root:        root,
		MetadataDir: metaDir,
		TmpDir:      filepath.Join(metaDir, tmpDir),
		StatePath:   filepath.Join(metaDir, "state.json"),
		flock:       flock.New(filepath.Join(metaDir, lockFile)),
	}, nil
}

// Bootstrap creates the watch root and metadata directories and takes the
// single-instance lock. The state file has exactly one in-process owner; the
// lock keeps a second daemon from ever becoming a second writer.
func (w *Workspace) Bootstrap() error {
	for _, dir := range []string{w.Root, w.MetadataDir, w.TmpDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock watch root: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

// Close releases the single-instance lock.
func (w *Workspace) Close() error {
	if !w.flock.Locked() {
		return nil
	}
	return w.flock.Unlock()
}

// AbsPath resolves a space path to an absolute path under the watch root.
func (w *Workspace) AbsPath(remotePath string) string {
	return filepath.Join(w.Root, filepath.FromSlash(remotePath))
}

// RelPath converts an absolute path under the watch root to a space path.
func (w *Workspace) RelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(w.Root, absPath)
	if err != nil {
		return "", fmt.Errorf("rel path %s: %w", absPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the watch root", absPath)
	}
	return NormPath(rel), nil
}

// IsInternal reports whether a path is under the workspace metadata directory.
func (w *Workspace) IsInternal(absPath string) bool {
	return absPath == w.MetadataDir ||
		strings.HasPrefix(absPath, w.MetadataDir+string(filepath.Separator))
}

// Files returns a lazy sequence of the absolute paths of all regular files
// under the watch root, excluding the metadata directory. The sequence walks
// the tree on demand so large trees never materialize in memory, and breaking
// out of the range stops the walk.
func (w *Workspace) Files() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stop := errors.New("stop walk")
		err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if !yield(path, walkErr) {
					return stop
				}
				return nil
			}
			if d.IsDir() {
				if w.IsInternal(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !yield(path, nil) {
				return stop
			}
			return nil
		})
		if err != nil && !errors.Is(err, stop) {
			yield(w.Root, err)
		}
	}
}

// NormPath normalizes a relative path to forward slashes.
func NormPath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "./")
}
