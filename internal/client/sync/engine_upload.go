package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/wikisync/wikisync/internal/wikisdk"
)

// UploadFile pushes a local file to the space. Tracked and unchanged files
// are no-ops. Text files go through the document endpoint, binary files
// through the attachment endpoint, per the closed extension table. Operations
// on the same path are queued behind the per-path lock, never run in
// parallel.
func (e *Engine) UploadFile(ctx context.Context, localPath string) error {
	relPath, err := e.ws.RelPath(localPath)
	if err != nil {
		return err
	}

	unlock := e.locks.Lock(relPath)
	defer unlock()

	if e.state.IsFileTracked(localPath) {
		changed, err := e.state.HasFileChanged(localPath)
		if errors.Is(err, ErrFileVanished) {
			slog.Debug("sync", "op", "upload", "path", relPath, "skip", "file vanished")
			return nil
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}

	data, err := os.ReadFile(localPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("sync", "op", "upload", "path", relPath, "skip", "file vanished")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	class := ClassifyFile(localPath)
	switch class {
	case TextFile:
		err = e.api.CreateOrUpdateDocument(ctx, &wikisdk.UpsertDocumentParams{
			Title:   docTitle(relPath),
			Content: string(data),
			SpaceID: e.spaceID,
			Path:    relPath,
		})
	case BinaryFile:
		err = e.api.UploadBinary(ctx, &wikisdk.UploadBinaryParams{
			Data:       data,
			FileName:   filepath.Base(localPath),
			SpaceID:    e.spaceID,
			FolderPath: path.Dir(relPath),
		})
	}
	if err != nil {
		return fmt.Errorf("upload %s: %w", relPath, err)
	}

	if err := e.state.TrackFile(localPath, relPath, HashBytes(data)); err != nil {
		return fmt.Errorf("track %s: %w", relPath, err)
	}

	slog.Info("sync", "op", "upload", "class", class, "path", relPath, "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// docTitle derives a document title from the space path: the base name
// without its extension.
func docTitle(relPath string) string {
	base := path.Base(relPath)
	return base[:len(base)-len(path.Ext(base))]
}
