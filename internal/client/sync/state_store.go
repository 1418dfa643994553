package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/wikisync/wikisync/internal/utils"
)

// ErrCorruptState means the state file exists but cannot be parsed. This is
// fatal at startup: silently resetting would forget every synced file and
// cause a mass re-sync.
var ErrCorruptState = errors.New("state file is corrupt")

// TrackedFile records the last synced state of one local file.
type TrackedFile struct {
	RemotePath string    `json:"remotePath"`
	Hash       string    `json:"hash"`
	LastSync   time.Time `json:"lastSync"`
}

// StateStore is the durable map of tracked files, keyed by local path. It is
// the sole source of truth for "already synced". Every mutation persists
// synchronously via an atomic temp-then-rename rewrite.
type StateStore struct {
	path  string
	mu    gosync.Mutex
	files map[string]*TrackedFile
}

func NewStateStore(path string) *StateStore {
	return &StateStore{
		path:  path,
		files: make(map[string]*TrackedFile),
	}
}

// Load reads the persisted state, or initializes empty state if the file does
// not exist. An existing but unparsable file fails with ErrCorruptState.
func (s *StateStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.files = make(map[string]*TrackedFile)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state %s: %w", s.path, err)
	}

	files := make(map[string]*TrackedFile)
	if err := json.Unmarshal(data, &files); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}

	s.files = files
	slog.Debug("state store loaded", "path", s.path, "tracked", len(files))
	return nil
}

// TrackFile upserts the entry for localPath and persists.
func (s *StateStore) TrackFile(localPath, remotePath, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[localPath] = &TrackedFile{
		RemotePath: remotePath,
		Hash:       hash,
		LastSync:   time.Now().UTC(),
	}
	return s.persist()
}

// IsFileTracked reports whether localPath has a tracked entry.
func (s *StateStore) IsFileTracked(localPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[localPath]
	return ok
}

// GetTracked returns the tracked entry for localPath.
func (s *StateStore) GetTracked(localPath string) (*TrackedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tf, ok := s.files[localPath]
	if !ok {
		return nil, false
	}
	copied := *tf
	return &copied, true
}

// HasFileChanged recomputes the content hash of localPath and compares it to
// the stored hash. An untracked path counts as changed. A vanished file
// returns ErrFileVanished; the caller must skip the cycle.
func (s *StateStore) HasFileChanged(localPath string) (bool, error) {
	s.mu.Lock()
	tf, ok := s.files[localPath]
	s.mu.Unlock()

	if !ok {
		return true, nil
	}

	hash, err := ComputeHash(localPath)
	if err != nil {
		return false, err
	}
	return hash != tf.Hash, nil
}

// GetFilePath resolves a remote path back to its tracked local path.
func (s *StateStore) GetFilePath(remotePath string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for localPath, tf := range s.files {
		if tf.RemotePath == remotePath {
			return localPath, true
		}
	}
	return "", false
}

// UntrackDocument removes the entry for a remote path and persists.
func (s *StateStore) UntrackDocument(remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for localPath, tf := range s.files {
		if tf.RemotePath == remotePath {
			delete(s.files, localPath)
			return s.persist()
		}
	}
	return nil
}

// GetAllTrackedDocuments returns the remote paths of every tracked file.
func (s *StateStore) GetAllTrackedDocuments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	remotePaths := make([]string, 0, len(s.files))
	for _, tf := range s.files {
		remotePaths = append(remotePaths, tf.RemotePath)
	}
	return remotePaths
}

// Count returns the number of tracked files.
func (s *StateStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// persist rewrites the state file atomically. Caller must hold s.mu.
func (s *StateStore) persist() error {
	data, err := json.MarshalIndent(s.files, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := utils.EnsureParent(s.path); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("state temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}

	success = true
	return nil
}
