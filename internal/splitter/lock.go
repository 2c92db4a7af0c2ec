package splitter

import "sync"

// documentLocks hands out one non-blocking lock per document so that two
// tasks never rewrite the same document's segments at once. Only held
// locks are stored; Release forgets the document.
type documentLocks struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

// TryAcquire locks documentID without blocking. It reports false when a
// task for that document already holds the lock.
func (d *documentLocks) TryAcquire(documentID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held == nil {
		d.held = make(map[int64]struct{})
	}
	if _, ok := d.held[documentID]; ok {
		return false
	}
	d.held[documentID] = struct{}{}
	return true
}

// Release unlocks documentID. Must only be called by the holder.
func (d *documentLocks) Release(documentID int64) {
	d.mu.Lock()
	delete(d.held, documentID)
	d.mu.Unlock()
}

// Len reports how many documents are currently locked
func (d *documentLocks) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.held)
}
