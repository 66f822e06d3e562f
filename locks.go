package keyflight

import "sync"

// keyedLocks hands out mutual exclusion scoped to a single key. Operations
// against different keys never block each other; the registry mutex guards
// only entry creation and removal and is held for O(1) steps.
//
// Entries are refcounted: acquire registers interest before blocking on the
// per-key mutex, so remove can never discard a lock that a concurrent
// acquire is about to take.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the key's lock is held and returns the release func.
// Releasing twice is safe.
func (l *keyedLocks) acquire(key string) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			l.mu.Unlock()
		})
	}
}

// remove discards the key's entry if no holder or pending acquire remains.
// Called when the key's record is reaped to bound registry growth.
func (l *keyedLocks) remove(key string) {
	l.mu.Lock()
	if e, ok := l.entries[key]; ok && e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

func (l *keyedLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
