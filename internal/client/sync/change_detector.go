package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFileVanished means the file disappeared before or during hashing. The
// hash is unknown for this cycle; callers skip the path and retry on the next
// cycle rather than treating it as changed or unchanged.
var ErrFileVanished = errors.New("file vanished while hashing")

// ComputeHash returns the SHA-256 hex digest of the file's raw bytes.
func ComputeHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrFileVanished
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrFileVanished
		}
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the SHA-256 hex digest of a byte slice. Used when the
// content is already in memory, so the recorded hash matches the exact bytes
// that were transferred.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
