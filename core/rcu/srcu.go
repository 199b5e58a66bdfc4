// Package rcu implements a sleepable-reader RCU contract (init/cleanup,
// read-lock/read-unlock, dereference, assign-pointer, synchronize). No
// ecosystem package implements kernel-style sleepable RCU for user-space
// Go, so this is a from-scratch implementation of SRCU's public contract
// on top of sync/atomic and percpu.Counter rather than an adaptation of a
// third-party library; see DESIGN.md for why this is the one justified
// stdlib-only component.
package rcu

import (
	"runtime"
	"sync/atomic"

	"github.com/numpy1314/domain-runtime/core/percpu"
)

// SRCU is a sleepable-read-copy-update synchronization structure: readers
// may block while holding a read-side critical section, and a writer's
// Synchronize call returns only once every critical section that began
// before it was called has ended.
//
// It uses the classic two-epoch-counter scheme: readers snapshot the
// currently active epoch under an atomic load and bump that epoch's
// counter; Synchronize flips the active epoch so new readers start
// counting against the other counter, then waits for the epoch it flipped
// away from to drain. This bounds the wait even under a continuous stream
// of new readers, which a single unpartitioned counter could not.
type SRCU struct {
	active  atomic.Int32
	counter [2]*percpu.Counter
}

// New creates and initializes an SRCU structure (rcu_init).
func New() *SRCU {
	return &SRCU{counter: [2]*percpu.Counter{percpu.New(), percpu.New()}}
}

// ReadLock enters a read-side critical section and returns the epoch index
// to later pass to ReadUnlock (rcu_read_lock).
func (s *SRCU) ReadLock() int {
	idx := int(s.active.Load())
	s.counter[idx].Inc()
	return idx
}

// ReadUnlock exits a read-side critical section (rcu_read_unlock).
func (s *SRCU) ReadUnlock(idx int) {
	s.counter[idx].Dec()
}

// Synchronize blocks until every read-side critical section that began
// before this call has exited (rcu_synchronize / synchronize_srcu).
func (s *SRCU) Synchronize() {
	draining := int(s.active.Load())
	s.active.Store(int32(1 - draining))
	for s.counter[draining].Sum() != 0 {
		runtime.Gosched()
	}
}

// Close tears down the synchronization structure (rcu_cleanup). It does
// not touch any value readers or writers were protecting.
func (s *SRCU) Close() {}
