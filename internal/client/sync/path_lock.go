package sync

import (
	gosync "sync"
)

// pathLocker serializes operations per path. A second operation on the same
// path blocks until the first releases; operations on different paths run
// independently. Entries are reference-counted so the map does not grow with
// every path ever synced.
type pathLocker struct {
	mu    gosync.Mutex
	locks map[string]*pathLockEntry
}

type pathLockEntry struct {
	mu   gosync.Mutex
	refs int
}

func newPathLocker() *pathLocker {
	return &pathLocker{
		locks: make(map[string]*pathLockEntry),
	}
}

// Lock acquires the lock for path and returns the matching unlock func.
func (p *pathLocker) Lock(path string) func() {
	p.mu.Lock()
	entry, ok := p.locks[path]
	if !ok {
		entry = &pathLockEntry{}
		p.locks[path] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		p.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(p.locks, path)
		}
		p.mu.Unlock()
	}
}
