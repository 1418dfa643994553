package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wikisync/wikisync/internal/utils"
)

func fileExists(path string) bool {
	return utils.FileExists(path)
}

// writeFileAtomic writes body to path via a temp file in tmpDirPath followed
// by a rename, hashing the bytes as they are written. Returns the SHA-256 hex
// digest of what landed on disk.
func writeFileAtomic(tmpDirPath string, path string, body []byte) (string, error) {
	if err := utils.EnsureParent(path); err != nil {
		return "", fmt.Errorf("ensure parent: %w", err)
	}
	if err := utils.EnsureDir(tmpDirPath); err != nil {
		return "", fmt.Errorf("ensure temp dir: %w", err)
	}

	tempFile, err := os.CreateTemp(tmpDirPath, filepath.Base(path)+".wikisync.tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	hasher := sha256.New()
	writer := io.MultiWriter(tempFile, hasher)

	if _, err := writer.Write(body); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	// Sync before rename so the content is durable at its final path.
	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return "", fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	success = true
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
