package engine

import "sync"

// slotLocks serializes write operations per (date, item kind) key so
// that the availability check and the subsequent insert execute as one
// unit.  Writes on different keys proceed fully in parallel.  Entries
// are reference-counted and removed once the last holder releases, so
// the map does not grow with the booking history.
type slotLocks struct {
	mu    sync.Mutex
	slots map[string]*slotEntry
}

type slotEntry struct {
	mu   sync.Mutex
	refs int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{slots: make(map[string]*slotEntry)}
}

// lock acquires the mutex for key, creating it on first use.
func (l *slotLocks) lock(key string) {
	l.mu.Lock()
	e, ok := l.slots[key]
	if !ok {
		e = &slotEntry{}
		l.slots[key] = e
	}
	e.refs++
	l.mu.Unlock()
	e.mu.Lock()
}

// unlock releases the mutex for key and drops the entry when no other
// goroutine is waiting on it.
func (l *slotLocks) unlock(key string) {
	l.mu.Lock()
	e := l.slots[key]
	e.refs--
	if e.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
	e.mu.Unlock()
}

// slotKey builds the serialization key for a reservation write.
func slotKey(date, item string) string { return date + "|" + item }
