package sync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	gosync "sync"
	"time"

	"github.com/wikisync/wikisync/internal/client/workspace"
	"github.com/wikisync/wikisync/internal/wikisdk"
)

var ErrSyncAlreadyRunning = errors.New("sync already running")

// Engine orchestrates uploads, downloads, local deletes and full
// reconciliation between the watch root and the remote space.
type Engine struct {
	ws           *workspace.Workspace
	api          SpaceAPI
	state        *StateStore
	watcher      *Watcher
	ignoreList   *IgnoreList
	spaceID      string
	pollInterval time.Duration
	locks        *pathLocker
	wg           gosync.WaitGroup
	muSync       gosync.Mutex
}

func NewEngine(
	ws *workspace.Workspace,
	api SpaceAPI,
	state *StateStore,
	watcher *Watcher,
	ignore *IgnoreList,
	spaceID string,
	pollInterval time.Duration,
) *Engine {
	return &Engine{
		ws:           ws,
		api:          api,
		state:        state,
		watcher:      watcher,
		ignoreList:   ignore,
		spaceID:      spaceID,
		pollInterval: pollInterval,
		locks:        newPathLocker(),
	}
}

// Start runs the initial reconciliation, pushes pre-existing local content,
// and then spawns the watcher-event loop and the timer-driven reconciliation
// loop. Per-file failures are logged and retried on the next cycle; they never
// stop the engine.
func (e *Engine) Start(ctx context.Context) error {
	slog.Info("sync start", "space", e.spaceID, "interval", e.pollInterval)

	slog.Info("running initial sync")
	if err := e.SyncFromSpace(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("initial sync failed", "error", err)
	}
	if err := e.SyncToSpace(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("initial local push failed", "error", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		// a timer and not a ticker, to avoid queued ticks when a full sync
		// takes longer than the poll interval
		timer := time.NewTimer(e.pollInterval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				err := e.SyncFromSpace(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("full sync failed", "error", err)
				}
				timer.Reset(e.pollInterval)
			}
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.handleWatcherEvents(ctx)
	}()

	return nil
}

// Stop waits for the event and reconciliation loops to drain. In-flight
// operations complete; nothing is force-aborted mid-write.
func (e *Engine) Stop() {
	slog.Info("sync stop")
	e.wg.Wait()
}

// SyncFromSpace runs one full reconciliation pass: download remote documents
// that are untracked, locally missing, or newer than the last sync, then
// delete local files whose remote path left the listing. With no intervening
// change on either side the pass performs zero writes and zero remote calls
// beyond the listing itself.
func (e *Engine) SyncFromSpace(ctx context.Context) error {
	if !e.muSync.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	tStart := time.Now()

	docs, err := e.api.ListDocuments(ctx, e.spaceID)
	if err != nil {
		return err
	}

	remote := make(map[string]*wikisdk.DocumentInfo, len(docs))
	downloads := 0
	for _, doc := range docs {
		remote[doc.Path] = doc

		downloaded, err := e.downloadIfStale(ctx, doc)
		if err != nil {
			// isolate the failure; the rest of the pass continues
			slog.Error("sync", "op", "download", "path", doc.Path, "error", err)
			continue
		}
		if downloaded {
			downloads++
		}
	}

	// propagate remote deletions
	deletes := 0
	for _, remotePath := range e.state.GetAllTrackedDocuments() {
		if _, ok := remote[remotePath]; ok {
			continue
		}
		if err := e.DeleteLocalFile(ctx, remotePath); err != nil {
			slog.Error("sync", "op", "deleteLocal", "path", remotePath, "error", err)
			continue
		}
		deletes++
	}

	if downloads > 0 || deletes > 0 {
		slog.Info("full sync",
			"remote", len(docs),
			"downloads", downloads,
			"localDeletes", deletes,
			"tracked", e.state.Count(),
			"took", time.Since(tStart),
		)
	}

	return nil
}

// downloadIfStale downloads doc unless the tracked local copy is present and
// at least as recent as the remote. Reports whether a download happened.
func (e *Engine) downloadIfStale(ctx context.Context, doc *wikisdk.DocumentInfo) (bool, error) {
	localPath, tracked := e.state.GetFilePath(doc.Path)
	if tracked {
		tf, ok := e.state.GetTracked(localPath)
		if ok && fileExists(localPath) && !doc.UpdatedAt.After(tf.LastSync) {
			return false, nil
		}
	}
	if err := e.DownloadDocument(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// SyncToSpace walks the watch root lazily and uploads every file that is
// untracked or changed since its last sync. Unchanged files are no-ops.
func (e *Engine) SyncToSpace(ctx context.Context) error {
	for path, err := range e.ws.Files() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Warn("sync", "op", "scan", "path", path, "error", err)
			continue
		}
		if e.ignoreList.ShouldIgnore(path) {
			continue
		}
		if err := e.UploadFile(ctx, path); err != nil {
			slog.Error("sync", "op", "upload", "path", path, "error", err)
		}
	}
	return nil
}

// handleWatcherEvents routes local filesystem events into uploads.
func (e *Engine) handleWatcherEvents(ctx context.Context) {
	watcherEvents := e.watcher.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcherEvents:
			if !ok {
				return
			}
			path := event.Path()
			if !e.shouldUpload(path) {
				continue
			}
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				// A transfer already started finishes; Stop waits for it
				// instead of tearing down a partial remote write.
				if err := e.UploadFile(context.WithoutCancel(ctx), path); err != nil {
					slog.Error("sync", "op", "upload", "path", path, "error", err)
				}
			}()
		}
	}
}

// shouldUpload filters watcher paths down to uploadable regular files.
// Delete events are not propagated upstream: the remote listing is
// authoritative for existence, so the next reconciliation pass restores the
// file.
func (e *Engine) shouldUpload(path string) bool {
	if e.ws.IsInternal(path) || e.ignoreList.ShouldIgnore(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("local file gone, awaiting reconcile", "path", path)
		return false
	}
	return !info.IsDir()
}
