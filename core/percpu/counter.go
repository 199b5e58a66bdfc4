// Package percpu implements a sharded signed counter: a per-CPU-style
// reader counter whose sum the domain proxy uses to detect that no
// fast-path call is currently executing.
//
// This is a hosted Go runtime, not the kernel itself, so "per-CPU" cannot
// mean a literal interrupt-disabled per-CPU area: there is no way from Go
// to pin a computation to one CPU or to disable preemption around a few
// instructions. Counter instead shards across a fixed number of cache-line
// padded cells (sized off runtime.GOMAXPROCS) and picks a cell per call
// using a sync.Pool-cached handle — the same per-P local-cache trick the Go
// runtime's own sync.Pool uses internally to avoid a single hot counter,
// without claiming true CPU affinity. Each cell is mutated through a
// compare-and-swap retry loop rather than a bare read-modify-write, because
// unlike a real per-CPU area two goroutines can legitimately land on the
// same shard concurrently here.
package percpu

import (
	"runtime"
	"sync"
	"sync/atomic"
)

const cacheLinePad = 64 - 8 // one int64 (8 bytes) plus padding to a cache line

type shard struct {
	v   atomic.Int64
	_   [cacheLinePad]byte
}

// Counter is a sharded signed 64-bit counter.
type Counter struct {
	shards []shard
	pool   sync.Pool
	seq    atomic.Uint64
}

// New returns a counter sharded across roughly 2x GOMAXPROCS cells, enough
// headroom to absorb bursty concurrent access without most goroutines
// landing on the same shard.
func New() *Counter {
	n := runtime.GOMAXPROCS(0) * 2
	if n < 1 {
		n = 1
	}
	c := &Counter{shards: make([]shard, n)}
	c.pool.New = func() any {
		idx := int(c.seq.Add(1)-1) % len(c.shards)
		return &idx
	}
	return c
}

// index returns the shard index for the calling goroutine's current
// "current-CPU" stand-in, borrowing (and returning) a sync.Pool-cached
// handle around the call.
func (c *Counter) index() int {
	h := c.pool.Get().(*int)
	idx := *h
	c.pool.Put(h)
	return idx
}

// AddWith acquires the current shard and applies f to its value,
// compare-and-swap looping until the update is uncontended.
func (c *Counter) AddWith(f func(cur int64) int64) {
	s := &c.shards[c.index()]
	for {
		old := s.v.Load()
		if s.v.CompareAndSwap(old, f(old)) {
			return
		}
	}
}

// Inc is shorthand for AddWith(+1), used to mark the start of a fast-path call.
func (c *Counter) Inc() {
	c.AddWith(func(cur int64) int64 { return cur + 1 })
}

// Dec is shorthand for AddWith(-1), used to mark the end of a fast-path call.
func (c *Counter) Dec() {
	c.AddWith(func(cur int64) int64 { return cur - 1 })
}

// Sum adds up every shard. This is unsynchronized: it is a lower bound on
// a growing workload and exact only if the caller has already serialized
// producers (e.g. Replace has already published upgrading=true, so no new
// fast-path call can begin while Sum is polled).
func (c *Counter) Sum() int64 {
	var total int64
	for i := range c.shards {
		total += c.shards[i].v.Load()
	}
	return total
}
