package rcu

import "sync/atomic"

// Cell is an RCU pointer cell: a single-pointer cell with sleepable-reader
// semantics, letting a writer swap the pointed-to implementation
// atomically while readers observe either the old or new pointer
// consistently.
type Cell[P any] struct {
	ptr  atomic.Pointer[P]
	srcu *SRCU
}

// NewCell allocates the backing SRCU structure and stores initial.
func NewCell[P any](initial *P) *Cell[P] {
	c := &Cell[P]{srcu: New()}
	c.ptr.Store(initial)
	return c
}

// Read enters a read-side critical section, dependency-ordered-loads ptr,
// and invokes f; f may block.
func Read[P, R any](c *Cell[P], f func(*P) R) R {
	idx := c.srcu.ReadLock()
	defer c.srcu.ReadUnlock(idx)
	return f(c.ptr.Load())
}

// ReadDirectly loads ptr and invokes f without entering a read-side
// critical section. Safe only when the caller establishes liveness of *ptr
// by other means.
func ReadDirectly[P, R any](c *Cell[P], f func(*P) R) R {
	return f(c.ptr.Load())
}

// Update installs newp via a release-ordered store, waits for every prior
// read-side critical section to end, then returns the old pointer. After
// Update returns, no reader can observe the old value.
func Update[P any](c *Cell[P], newp *P) *P {
	old := c.ptr.Swap(newp)
	c.srcu.Synchronize()
	return old
}

// UpdateDirectly installs newp and returns the old pointer immediately,
// without waiting for a grace period. The caller warrants that readers of
// the old value either cannot exist or are drained by external means
// (e.g. a domain proxy's own inflight drain before calling this).
func UpdateDirectly[P any](c *Cell[P], newp *P) *P {
	return c.ptr.Swap(newp)
}

// Close tears down the backing synchronization structure. It does not
// touch the current ptr; that remains the caller's responsibility.
func (c *Cell[P]) Close() {
	c.srcu.Close()
}
