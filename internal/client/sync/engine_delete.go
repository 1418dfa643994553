package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// DeleteLocalFile propagates a remote deletion: unlink the tracked local file
// and drop its state entry. An untracked remote path or an already-missing
// file is a no-op; the delete is idempotent.
func (e *Engine) DeleteLocalFile(_ context.Context, remotePath string) error {
	localPath, ok := e.state.GetFilePath(remotePath)
	if !ok {
		// already consistent
		return nil
	}

	unlock := e.locks.Lock(remotePath)
	defer unlock()

	err := os.Remove(localPath)
	switch {
	case err == nil:
		slog.Info("sync", "op", "deleteLocal", "path", remotePath)
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("sync", "op", "deleteLocal", "path", remotePath, "note", "file was already gone")
	default:
		return fmt.Errorf("delete %s: %w", localPath, err)
	}

	if err := e.state.UntrackDocument(remotePath); err != nil {
		return fmt.Errorf("untrack %s: %w", remotePath, err)
	}
	return nil
}
