package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/wikisync/wikisync/internal/wikisdk"
)

// DownloadDocument fetches a remote document and writes it under the watch
// root. The destination path gets a single-shot ignore entry before the write
// so the watcher does not bounce the engine's own write back upstream. A
// locally-modified file is preserved as a .conflict sibling before the remote
// content overwrites it.
func (e *Engine) DownloadDocument(ctx context.Context, doc *wikisdk.DocumentInfo) error {
	localPath := e.ws.AbsPath(doc.Path)

	unlock := e.locks.Lock(doc.Path)
	defer unlock()

	content, err := e.api.GetDocumentContent(ctx, doc.Path, e.spaceID)
	if err != nil {
		if wikisdk.IsNotFound(err) {
			// deleted between listing and fetch; the next pass propagates it
			slog.Info("sync", "op", "download", "path", doc.Path, "skip", "document gone")
			return nil
		}
		return fmt.Errorf("fetch %s: %w", doc.Path, err)
	}

	// Arm the ignore entry before any write to this path, including the
	// conflict rename below.
	e.watcher.IgnoreOnce(localPath)

	if err := e.preserveConflict(localPath); err != nil {
		slog.Warn("sync", "op", "download", "path", doc.Path, "conflictCopy", "failed", "error", err)
	}

	hash, err := writeFileAtomic(e.ws.TmpDir, localPath, content)
	if err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}

	// A missing file after the write is a hard I/O failure, not a success.
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("verify %s after write: %w", localPath, err)
	}

	if err := e.state.TrackFile(localPath, doc.Path, hash); err != nil {
		return fmt.Errorf("track %s: %w", doc.Path, err)
	}

	slog.Info("sync", "op", "download", "class", docClass(doc), "path", doc.Path, "size", humanize.Bytes(uint64(len(content))))
	return nil
}

// docClass maps the remote descriptor's binary flag onto the transfer class.
func docClass(doc *wikisdk.DocumentInfo) FileClass {
	if doc.IsBinary {
		return BinaryFile
	}
	return TextFile
}

// preserveConflict keeps a copy of localPath as a .conflict sibling when its
// current content differs from the last synced hash. The remote copy still
// wins in place, but the local edit is not silently destroyed.
func (e *Engine) preserveConflict(localPath string) error {
	if !e.state.IsFileTracked(localPath) {
		return nil
	}

	changed, err := e.state.HasFileChanged(localPath)
	if errors.Is(err, ErrFileVanished) {
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	conflictPath := localPath + ".conflict"
	if err := os.Rename(localPath, conflictPath); err != nil {
		return err
	}

	slog.Warn("sync", "op", "download", "path", localPath, "localEditsMovedTo", conflictPath)
	return nil
}
