package proxy

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	logv3 "github.com/ledgerwatch/log/v3"

	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/percpu"
	"github.com/numpy1314/domain-runtime/core/rcu"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

// Domain is the minimal capability every domain kind must implement: an
// identity tag and an initialization hook invoked during Replace step 5.
type Domain interface {
	DomainID() sharedheap.DomainID
	Init() error
}

// Config tunes a Core's replacement protocol. The zero value is usable: an
// unbounded spin-with-yield drain.
type Config struct {
	// DrainTimeout bounds the busy-wait in Replace step 4. Zero means wait
	// indefinitely. A positive value falls back to rcu.Update's real
	// grace-period wait instead of UpdateDirectly once exceeded, trading a
	// bounded wait for the drain loop against an unbounded (but safe) one
	// inside Synchronize.
	DrainTimeout time.Duration
	Logger       logv3.Logger
}

// PanicHook is invoked when a domain call panics, before the panic is
// re-raised, so the host can bump that domain's panic counter — a
// recovered domain panic does not quarantine the proxy by itself.
type PanicHook func(domainID sharedheap.DomainID, recovered any)

// Core is the generic dual-path dispatcher wrapping one RPC[Box<D>]. Every
// concrete proxy type (LoggerProxy, NullDeviceProxy, BlockDeviceProxy, ...)
// embeds a *Core[D] and exposes D's methods through Dispatch.
type Core[D Domain] struct {
	impl      *rcu.Cell[D]
	writeLock sync.Mutex

	loaderLock   sync.Mutex
	loaderRecord loader.Record

	upgrading atomic.Bool
	inflight  *percpu.Counter

	cfg       Config
	PanicHook PanicHook
}

// NewCore wraps initial behind an RPC cell, ready to serve fast-path calls.
func NewCore[D Domain](initial D, record loader.Record, cfg Config) *Core[D] {
	return &Core[D]{
		impl:         rcu.NewCell[D](&initial),
		loaderRecord: record,
		inflight:     percpu.New(),
		cfg:          cfg,
	}
}

// DomainID returns the current implementation's identity, itself routed
// through the dual-path dispatcher like any other method.
func (c *Core[D]) DomainID() sharedheap.DomainID {
	return Dispatch(c, func(d D) sharedheap.DomainID { return d.DomainID() })
}

// LoaderRecord returns the currently installed loader record under the
// loader lock.
func (c *Core[D]) LoaderRecord() loader.Record {
	c.loaderLock.Lock()
	defer c.loaderLock.Unlock()
	return c.loaderRecord
}

// call runs f against d, recovering (and re-raising unmodified) any panic
// from the underlying domain so the panic hook fires and, critically, so
// a deferred inflight decrement still runs even when a call panics.
func call[D Domain, R any](c *Core[D], d D, f func(D) R) (result R) {
	defer func() {
		if r := recover(); r != nil {
			if c.PanicHook != nil {
				c.PanicHook(d.DomainID(), r)
			}
			panic(r)
		}
	}()
	return f(d)
}

// FastPath increments inflight and enters the cell's read-side critical
// section so a real in-flight fast-path call registers with the SRCU
// structure backing it (not just with inflight), then decrements inflight
// — via defer, so a panic from f still decrements. Registering with the
// SRCU is what makes Replace's timeout fallback to rcu.Update a genuine
// grace-period wait rather than a no-op: without it, Synchronize would
// have no readers to wait for regardless of calls genuinely in flight.
func FastPath[D Domain, R any](c *Core[D], f func(D) R) R {
	c.inflight.Inc()
	defer c.inflight.Dec()
	return rcu.Read(c.impl, func(pd *D) R {
		return call(c, *pd, f)
	})
}

// LockedPath acquires writeLock (serializing with Replace) and runs f.
func LockedPath[D Domain, R any](c *Core[D], f func(D) R) R {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return rcu.ReadDirectly(c.impl, func(pd *D) R {
		return call(c, *pd, f)
	})
}

// Dispatch is the proxy's dual-path method template:
//
//	method(args):
//	  if upgrading.load(relaxed): locked_path(args)
//	  else: fast_path(args)
func Dispatch[D Domain, R any](c *Core[D], f func(D) R) R {
	if c.upgrading.Load() {
		return LockedPath(c, f)
	}
	return FastPath(c, f)
}

// Replace implements the 9-step live-replacement protocol.
//
//  1. Acquire loaderLock.
//  2. Acquire writeLock.
//  3. Publish upgrading=true.
//  4. Drain: wait until inflight.Sum()==0 (optionally bounded by
//     cfg.DrainTimeout, falling back to a grace-period update on timeout).
//  5. Initialize the new implementation; roll back cleanly on failure.
//  6. Install it — via UpdateDirectly (no grace period needed: step 4
//     already proved the reader set empty) unless step 4 timed out, in
//     which case Update's own grace-period wait stands in.
//  7. Publish upgrading=false.
//  8. Surrender the old implementation's outer ownership without running
//     its destructor, and ask the shared heap to retag its blocks to the
//     new owner instead of freeing them.
//  9. Install the new loader record.
func Replace[D Domain](c *Core[D], heap *sharedheap.Heap, newImpl D, newRecord loader.Record, newID sharedheap.DomainID) error {
	c.loaderLock.Lock()
	defer c.loaderLock.Unlock()

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	oldID := rcu.ReadDirectly(c.impl, func(pd *D) sharedheap.DomainID { return (*pd).DomainID() })

	c.upgrading.Store(true)

	timedOut := drain(c.inflight, c.cfg.DrainTimeout)

	if err := newImpl.Init(); err != nil {
		c.upgrading.Store(false)
		return fmt.Errorf("proxy: replace: %w: %v", errs.ErrInitFailure, err)
	}

	var old *D
	if timedOut {
		old = rcu.Update(c.impl, &newImpl)
	} else {
		old = rcu.UpdateDirectly(c.impl, &newImpl)
	}
	_ = old

	c.upgrading.Store(false)

	heap.ReleaseDomain(oldID, sharedheap.KeepShared, newID, nil)

	c.loaderRecord = newRecord
	return nil
}

// drain busy-waits (yielding between polls) until counter.Sum()==0, or
// until timeout elapses if timeout is positive. It reports whether it gave
// up due to timeout.
func drain(counter *percpu.Counter, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for counter.Sum() != 0 {
		if timeout > 0 && time.Now().After(deadline) {
			return true
		}
		runtime.Gosched()
	}
	return false
}
