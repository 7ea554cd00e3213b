package service

import "sync"

// runLocker provides per-run mutual exclusion. Operations against the same
// run id are serialized; operations on different ids proceed in parallel.
type runLocker struct {
	mu    sync.Mutex
	locks map[string]*runLock
}

type runLock struct {
	mu   sync.Mutex
	refs int
}

func newRunLocker() *runLocker {
	return &runLocker{locks: make(map[string]*runLock)}
}

// lock acquires the mutex for the given run id, creating it on first use
func (l *runLocker) lock(id string) {
	l.mu.Lock()
	entry, exists := l.locks[id]
	if !exists {
		entry = &runLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// unlock releases the mutex for the given run id and discards it once no
// other operation is waiting on it
func (l *runLocker) unlock(id string) {
	l.mu.Lock()
	entry := l.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
