// Package sharedheap implements the shared-heap interface: allocate
// blocks tagged with (domain-id slot, type-id, drop-fn), deallocate by
// address, and release every block belonging to a torn-down domain either
// by dropping it or by retagging it to a surviving domain.
//
// A kernel-level allocator typically reserves two adjacent slots in one
// physical block (a tag word and the payload); Go has no use for that
// split, since it already prevents the use-after-free the two-slot layout
// exists to guard against in an unmanaged language, so Block folds both
// into one struct and Addr stands in for "the address of that block".
package sharedheap

import (
	"fmt"
	"sync"
	"sync/atomic"

	bloomfilter "github.com/holiman/bloomfilter/v2"
	btree "github.com/tidwall/btree"

	"github.com/numpy1314/domain-runtime/core/typeid"
)

// Addr is an opaque shared-heap handle, the Go stand-in for a combined
// value/tag address pair.
type Addr uint64

// DomainID is the 64-bit owning-domain tag. math.MaxUint64 is the sentinel
// "empty" id used by placeholder implementations.
type DomainID = uint64

// EmptyDomainID is the sentinel used by placeholder/empty domain impls.
const EmptyDomainID DomainID = ^DomainID(0)

// Policy selects release_domain's behavior for a domain's surviving blocks.
type Policy int

const (
	// FreeAll invokes each block's destructor then frees it.
	FreeAll Policy = iota
	// KeepShared retags surviving blocks to a new owner without dropping them.
	KeepShared
)

// block is the allocation record stored inline with each block.
type block struct {
	domainID atomic.Uint64
	typeID   typeid.ID
	dropFn   typeid.DropFunc
	value    any
}

// Heap is the in-process reference implementation of the shared-heap
// contract. Blocks are indexed by Addr in an ordered btree so
// ReleaseDomain can do an ordered scan instead of a full map walk.
type Heap struct {
	mu     sync.Mutex
	blocks *btree.Map[Addr, *block]
	next   atomic.Uint64

	existMu sync.Mutex
	exist   *bloomfilter.Filter // might-have-live-blocks, per domain id
}

// New returns an empty shared heap.
func New() *Heap {
	f, err := bloomfilter.New(1 << 20)
	if err != nil {
		// Only size/param errors can reach here; a fixed constant can't fail.
		panic(fmt.Sprintf("sharedheap: building existence filter: %v", err))
	}
	return &Heap{
		blocks: btree.NewMap[Addr, *block](32),
		exist:  f,
	}
}

// Alloc reserves a block for value, tags it with domainID, and records
// typeID and drop in the block itself. It is fatal to exhaust the
// heap; the in-process reference heap never runs out, so this always
// succeeds — callers must not be able to exhaust the shared heap during
// normal operation.
func (h *Heap) Alloc(domainID DomainID, id typeid.ID, drop typeid.DropFunc, value any) Addr {
	h.mu.Lock()
	defer h.mu.Unlock()

	addr := Addr(h.next.Add(1))
	b := &block{typeID: id, dropFn: drop, value: value}
	b.domainID.Store(domainID)
	h.blocks.Set(addr, b)

	h.existMu.Lock()
	h.exist.AddHash(domainID)
	h.existMu.Unlock()

	return addr
}

// Dealloc releases the block at addr immediately, without running its
// destructor. Double-free is the caller's responsibility to avoid; this
// heap does not guard against it.
func (h *Heap) Dealloc(addr Addr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blocks.Delete(addr)
}

// Value returns the live payload at addr. Panics if addr is unknown — a
// caller observing a stale Addr is a host-level bug.
func (h *Heap) Value(addr Addr) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks.Get(addr)
	if !ok {
		panic(fmt.Sprintf("sharedheap: fatal: deref of freed address %d", addr))
	}
	return b.value
}

// Tag returns the current owning domain id for addr.
func (h *Heap) Tag(addr Addr) DomainID {
	h.mu.Lock()
	b, ok := h.blocks.Get(addr)
	h.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("sharedheap: fatal: tag lookup of freed address %d", addr))
	}
	return b.domainID.Load()
}

// Retag overwrites the owning domain id for addr and returns the previous
// one; this is RR.MoveTo's underlying primitive.
func (h *Heap) Retag(addr Addr, newID DomainID) DomainID {
	h.mu.Lock()
	b, ok := h.blocks.Get(addr)
	h.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("sharedheap: fatal: retag of freed address %d", addr))
	}
	return b.domainID.Swap(newID)
}

// ReleaseDomain enumerates every live block tagged with domainID and
// applies policy. For FreeAll each block's destructor runs via the
// type-identity registry passed by the caller (ReleaseDomain itself has no
// registry dependency here; the caller supplies one via the dtor
// callback) before the block is freed. For KeepShared, surviving blocks
// are retagged to newOwner without being dropped.
func (h *Heap) ReleaseDomain(domainID DomainID, policy Policy, newOwner DomainID, dtor func(id typeid.ID, drop typeid.DropFunc, value any)) {
	h.existMu.Lock()
	maybeHasBlocks := h.exist.ContainsHash(domainID)
	h.existMu.Unlock()
	if !maybeHasBlocks {
		return
	}

	h.mu.Lock()
	var toFree []Addr
	h.blocks.Scan(func(addr Addr, b *block) bool {
		if b.domainID.Load() == domainID {
			toFree = append(toFree, addr)
		}
		return true
	})

	switch policy {
	case KeepShared:
		for _, addr := range toFree {
			b, _ := h.blocks.Get(addr)
			b.domainID.Store(newOwner)
		}
		h.mu.Unlock()
		h.existMu.Lock()
		h.exist.AddHash(newOwner)
		h.existMu.Unlock()
	case FreeAll:
		blocks := make([]*block, 0, len(toFree))
		for _, addr := range toFree {
			b, _ := h.blocks.Get(addr)
			blocks = append(blocks, b)
			h.blocks.Delete(addr)
		}
		h.mu.Unlock()
		for _, b := range blocks {
			if dtor != nil {
				dtor(b.typeID, b.dropFn, b.value)
			}
		}
	default:
		h.mu.Unlock()
		panic(fmt.Sprintf("sharedheap: fatal: unknown release policy %d", policy))
	}
}

// Len reports the number of live blocks; used by tests to assert on leaks.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.blocks.Len()
}
