package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wikisync/wikisync/internal/client/config"
	"github.com/wikisync/wikisync/internal/client/sync"
	"github.com/wikisync/wikisync/internal/client/workspace"
	"github.com/wikisync/wikisync/internal/wikisdk"
)

// Daemon wires the watch root, the wiki SDK, the watcher and the sync engine
// into one long-running process: an initial full reconciliation, then
// watcher-driven incremental sync plus timer-driven periodic reconciliation.
type Daemon struct {
	cfg     *config.Config
	ws      *workspace.Workspace
	sdk     *wikisdk.Client
	state   *sync.StateStore
	ignore  *sync.IgnoreList
	watcher *sync.Watcher
	engine  *sync.Engine
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	ws, err := workspace.NewWorkspace(cfg.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	sdk, err := wikisdk.New(cfg.ServerURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create sdk: %w", err)
	}

	state := sync.NewStateStore(ws.StatePath)
	ignore := sync.NewIgnoreList(ws.Root)
	watcher := sync.NewWatcher(ws.Root)
	engine := sync.NewEngine(ws, sdk.Documents, state, watcher, ignore, cfg.SpaceID, cfg.PollInterval())

	return &Daemon{
		cfg:     cfg,
		ws:      ws,
		sdk:     sdk,
		state:   state,
		ignore:  ignore,
		watcher: watcher,
		engine:  engine,
	}, nil
}

// Start brings the daemon up and blocks until ctx is cancelled. Corrupt state
// is fatal here: guessing would silently discard the sync history.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("daemon start", "root", d.cfg.WatchDir, "server", d.cfg.ServerURL, "space", d.cfg.SpaceID)

	if err := d.ws.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap watch root: %w", err)
	}

	if err := d.state.Load(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	d.ignore.Load()

	// keep the engine's own metadata writes and ignored paths out of the
	// event stream entirely
	d.watcher.FilterPaths(func(path string) bool {
		return d.ws.IsInternal(path) || d.ignore.ShouldIgnore(path)
	})

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := d.watcher.Start(egCtx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := d.engine.Start(egCtx); err != nil {
			return fmt.Errorf("start sync engine: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received shutdown signal, stopping daemon")
		d.Stop()
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon failure", "error", err)
		return err
	}

	slog.Info("daemon stopped")
	return nil
}

// Stop shuts components down in order: the watcher stops emitting, the engine
// drains its in-flight operations, then connections and the workspace lock
// are released.
func (d *Daemon) Stop() {
	d.watcher.Stop()
	d.engine.Stop()
	d.sdk.Close()
	if err := d.ws.Close(); err != nil {
		slog.Warn("unlock watch root", "error", err)
	}
}
