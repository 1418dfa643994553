package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	DefaultIgnoreTimeout   = time.Second
	defaultCleanupInterval = 15 * time.Second
	eventBufferSize        = 64
	defaultDebounceTimeout = 50 * time.Millisecond
)

// WatcherState is the lifecycle state of a Watcher.
type WatcherState int32

const (
	WatcherStopped WatcherState = iota
	WatcherStarting
	WatcherWatching
	WatcherStopping
)

func (s WatcherState) String() string {
	switch s {
	case WatcherStopped:
		return "stopped"
	case WatcherStarting:
		return "starting"
	case WatcherWatching:
		return "watching"
	case WatcherStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var ErrWatcherNotStopped = errors.New("watcher is not stopped")

// Watcher establishes a recursive watch over the watch root and forwards
// create/modify/delete events after debouncing. Paths armed via IgnoreOnce
// have their next event swallowed exactly once; this keeps the engine's own
// downloads from bouncing back upstream as local changes.
type Watcher struct {
	watchDir        string
	state           atomic.Int32
	events          chan notify.EventInfo
	rawEvents       chan notify.EventInfo
	ignore          map[string]time.Time
	ignoreMu        gosync.Mutex
	cleanupInterval time.Duration
	done            chan struct{}
	wg              gosync.WaitGroup
	// Debouncing fields
	pendingEvents   map[string]notify.EventInfo
	eventTimers     map[string]*time.Timer
	debounceMu      gosync.Mutex
	debounceTimeout time.Duration
	eventsClosed    bool
	// Raw event filtering
	filterCallback FilterCallback
	callbackMu     gosync.RWMutex
}

// FilterCallback returns true if events for path should be dropped before
// debouncing.
type FilterCallback func(path string) bool

func NewWatcher(watchDir string) *Watcher {
	return &Watcher{
		watchDir:        watchDir,
		ignore:          make(map[string]time.Time),
		cleanupInterval: defaultCleanupInterval,
		pendingEvents:   make(map[string]notify.EventInfo),
		eventTimers:     make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

func (w *Watcher) SetCleanupInterval(interval time.Duration) {
	w.cleanupInterval = interval
}

// SetDebounceTimeout sets the debounce timeout for events
func (w *Watcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

// FilterPaths sets a callback to drop raw events before debouncing.
func (w *Watcher) FilterPaths(callback FilterCallback) {
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.filterCallback = callback
}

func (w *Watcher) shouldFilter(path string) bool {
	w.callbackMu.RLock()
	defer w.callbackMu.RUnlock()
	return w.filterCallback != nil && w.filterCallback(path)
}

// State returns the current lifecycle state.
func (w *Watcher) State() WatcherState {
	return WatcherState(w.state.Load())
}

// Start establishes the recursive watch and transitions Stopped -> Starting
// -> Watching. Starting a watcher that is not stopped is an error.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(WatcherStopped), int32(WatcherStarting)) {
		return fmt.Errorf("%w: state %s", ErrWatcherNotStopped, w.State())
	}

	slog.Info("watcher start", "dir", w.watchDir)

	w.done = make(chan struct{})
	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan notify.EventInfo, eventBufferSize)
	w.eventsClosed = false

	recursivePath := w.watchDir + "/..."
	if err := notify.Watch(recursivePath, w.rawEvents, notify.Create|notify.Write|notify.Remove|notify.Rename); err != nil {
		w.state.Store(int32(WatcherStopped))
		return err
	}

	w.wg.Add(1)
	go w.filterEvents(ctx)

	w.wg.Add(1)
	go w.cleanupExpiredEntries(ctx)

	w.state.Store(int32(WatcherWatching))
	return nil
}

// Stop cancels all watches and transitions Watching -> Stopping -> Stopped.
func (w *Watcher) Stop() {
	if !w.state.CompareAndSwap(int32(WatcherWatching), int32(WatcherStopping)) {
		return
	}

	slog.Info("watcher stopping")

	close(w.done)

	// stops notify and closes rawEvents
	notify.Stop(w.rawEvents)

	w.wg.Wait()
	w.state.Store(int32(WatcherStopped))

	slog.Info("watcher stopped")
}

func (w *Watcher) Events() <-chan notify.EventInfo {
	return w.events
}

// IgnoreOnce arms a single-shot ignore entry for path with the default expiry.
// The next matching event is swallowed and the entry consumed.
func (w *Watcher) IgnoreOnce(path string) {
	w.IgnoreOnceWithTimeout(path, DefaultIgnoreTimeout)
}

// IgnoreOnceWithTimeout arms a single-shot ignore entry with a custom expiry.
func (w *Watcher) IgnoreOnceWithTimeout(path string, timeout time.Duration) {
	w.ignoreMu.Lock()
	defer w.ignoreMu.Unlock()
	w.ignore[path] = time.Now().Add(timeout)
}

// consumeIgnoreEntry checks whether path has a live ignore entry and consumes
// it. An expired entry is discarded without matching.
func (w *Watcher) consumeIgnoreEntry(path string) bool {
	w.ignoreMu.Lock()
	defer w.ignoreMu.Unlock()

	expiry, exists := w.ignore[path]
	if !exists {
		return false
	}

	delete(w.ignore, path)
	return !time.Now().After(expiry)
}

// filterEvents debounces raw events and forwards the survivors.
func (w *Watcher) filterEvents(ctx context.Context) {
	defer func() {
		slog.Debug("watcher filter events done")

		// Cancel pending timers, flush pending events, then close. Entries
		// are removed and eventsClosed is raised under the same lock flushEvent
		// takes, so a debounce timer that already fired either finds its entry
		// gone or sees the closed flag; it never sends after the close.
		w.debounceMu.Lock()
		for path, timer := range w.eventTimers {
			timer.Stop()
			delete(w.eventTimers, path)
			if event, exists := w.pendingEvents[path]; exists {
				delete(w.pendingEvents, path)
				select {
				case w.events <- event:
					slog.Debug("watcher flushing pending event on exit", "path", path)
				default:
					slog.Warn("watcher channel full during exit, dropping event", "path", path)
				}
			}
		}
		w.eventsClosed = true
		close(w.events)
		w.debounceMu.Unlock()

		w.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}
			if w.shouldFilter(event.Path()) {
				continue
			}
			// Editors emit a burst of write events per save; inotify does the
			// same while a file is being written. Collapse the burst to one
			// delivery per path at the cost of debounceTimeout extra latency.
			w.debounceEvent(event)
		}
	}
}

// debounceEvent resets the per-path flush timer for an incoming event.
func (w *Watcher) debounceEvent(event notify.EventInfo) {
	path := event.Path()

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.eventTimers[path]; exists {
		timer.Stop()
		delete(w.eventTimers, path)
	}

	w.pendingEvents[path] = event

	timer := time.AfterFunc(w.debounceTimeout, func() {
		w.flushEvent(path)
	})

	w.eventTimers[path] = timer
}

// flushEvent sends the pending event for a path unless an ignore entry
// consumes it.
func (w *Watcher) flushEvent(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	event, exists := w.pendingEvents[path]
	if !exists {
		return
	}

	delete(w.pendingEvents, path)
	delete(w.eventTimers, path)

	if w.eventsClosed {
		return
	}

	// Consume the ignore entry at delivery time, not arrival time, so the
	// entry matches the event for the write that armed it.
	if w.consumeIgnoreEntry(path) {
		slog.Debug("watcher swallowed own write", "path", path)
		return
	}

	select {
	case w.events <- event:
		slog.Debug("watcher", "event", event.Event(), "path", path)
	default:
		slog.Warn("watcher dropped", "reason", "channel full", "path", path)
	}
}

// cleanupExpiredEntries periodically removes expired ignore entries.
func (w *Watcher) cleanupExpiredEntries(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.ignoreMu.Lock()
			now := time.Now()
			for path, expiry := range w.ignore {
				if now.After(expiry) {
					delete(w.ignore, path)
				}
			}
			w.ignoreMu.Unlock()
		}
	}
}
