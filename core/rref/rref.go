// Package rref implements the Remote Reference (RR[T]): an owning
// smart-handle to a shared-heap value tagged with its owning domain's id,
// whose ownership moves between domains by retagging rather than by
// copying the payload.
//
// Go has no destructors, so scope-exit cleanup (run T's custom destructor,
// unless the handle was moved out, then release the shared-heap block) is
// realized as an explicit Release method the host must call — callers use
// `defer rr.Release()` in place of an implicit drop.
package rref

import (
	"github.com/numpy1314/domain-runtime/core/sharedheap"
	"github.com/numpy1314/domain-runtime/core/typeid"
)

// CustomDrop is a type-erased destructor interface distinct from any
// language-native finalizer, letting a value run deep shared-heap cleanup
// without recursing through RR's own Release.
type CustomDrop interface {
	CustomDrop()
}

// RR is the owning handle to a T allocated in the shared heap.
type RR[T any] struct {
	heap     *sharedheap.Heap
	types    *typeid.Registry
	typeID   typeid.ID
	addr     sharedheap.Addr
	movedOut bool
}

func dropFor[T any]() typeid.DropFunc {
	return func(v any) {
		if cd, ok := v.(CustomDrop); ok {
			cd.CustomDrop()
		}
	}
}

// New allocates value in the shared heap, tags it with domainID, registers
// T's destructor on first use, and returns an RR with moved_out=false. Go
// has no thread-local "current domain" context, so the owning domain is
// passed explicitly rather than inferred.
func New[T any](heap *sharedheap.Heap, types *typeid.Registry, domainID sharedheap.DomainID, value T) *RR[T] {
	return newWith(heap, types, domainID, value)
}

// NewAligned mirrors New with an explicit alignment override. Go's
// allocator does not expose per-value alignment control, so this is
// identical to New; kept as a distinct entry point for callers that want
// to document an alignment requirement even though it is not enforced.
func NewAligned[T any](heap *sharedheap.Heap, types *typeid.Registry, domainID sharedheap.DomainID, value T, _align int) *RR[T] {
	return newWith(heap, types, domainID, value)
}

func newWith[T any](heap *sharedheap.Heap, types *typeid.Registry, domainID sharedheap.DomainID, value T) *RR[T] {
	id := typeid.Of[T]()
	types.Register(id, dropFor[T]())
	vp := new(T)
	*vp = value
	addr := heap.Alloc(domainID, id, dropFor[T](), vp)
	return &RR[T]{heap: heap, types: types, typeID: id, addr: addr}
}

// Deref returns a borrow of T aliasing the shared-heap value. No tag or
// liveness checking is performed: that burden is on the host.
func (r *RR[T]) Deref() *T {
	return r.heap.Value(r.addr).(*T)
}

// DerefMut is Deref's mutable counterpart; Go pointers are already mutable
// so both accessors return the same *T.
func (r *RR[T]) DerefMut() *T {
	return r.Deref()
}

// DomainID reads the current owning-domain tag.
func (r *RR[T]) DomainID() sharedheap.DomainID {
	return r.heap.Tag(r.addr)
}

// MoveTo retags the handle to newID and returns the previous owner, so a
// caller can always restore the prior tag with a second MoveTo call. The
// host must hold whatever coarse lock serializes concurrent movers (e.g.
// the proxy's write lock during replace); the retag itself is single-slot
// atomic regardless.
func (r *RR[T]) MoveTo(newID sharedheap.DomainID) sharedheap.DomainID {
	return r.heap.Retag(r.addr, newID)
}

// Forget marks the handle as moved_out: Release becomes a no-op. Used
// when ownership of the value is surrendered to the shared heap's own
// release-domain bookkeeping instead of being dropped here.
func (r *RR[T]) Forget() {
	r.movedOut = true
}

// Release runs T's custom destructor (unless moved_out) then frees the
// shared-heap block. Callers invoke this at scope exit; it is not run
// automatically.
func (r *RR[T]) Release() {
	if r.movedOut {
		return
	}
	v := r.heap.Value(r.addr)
	if cd, ok := v.(CustomDrop); ok {
		cd.CustomDrop()
	}
	r.heap.Dealloc(r.addr)
}

// Addr exposes the underlying shared-heap handle, mainly for tests that
// need to assert a block was actually freed.
func (r *RR[T]) Addr() sharedheap.Addr {
	return r.addr
}

// UninitRR is a write-only handle returned by NewUninit: the bytes backing
// it are undefined until the caller initializes them. Keeping it a
// distinct type with only write access, transitioning to RR[T] via
// AssumeInit, rules out reading uninitialized memory through the type
// system rather than relying on caller discipline alone.
type UninitRR[T any] struct {
	heap     *sharedheap.Heap
	types    *typeid.Registry
	typeID   typeid.ID
	addr     sharedheap.Addr
}

// NewUninit allocates space for a T without initializing it. Reading
// through the eventual RR before InitWrite is undefined behavior at the
// host level.
func NewUninit[T any](heap *sharedheap.Heap, types *typeid.Registry, domainID sharedheap.DomainID) *UninitRR[T] {
	return newUninitWith[T](heap, types, domainID)
}

// NewUninitAligned mirrors NewUninit; see NewAligned for why alignment is a
// no-op on this host.
func NewUninitAligned[T any](heap *sharedheap.Heap, types *typeid.Registry, domainID sharedheap.DomainID, _align int) *UninitRR[T] {
	return newUninitWith[T](heap, types, domainID)
}

func newUninitWith[T any](heap *sharedheap.Heap, types *typeid.Registry, domainID sharedheap.DomainID) *UninitRR[T] {
	id := typeid.Of[T]()
	types.Register(id, dropFor[T]())
	vp := new(T)
	addr := heap.Alloc(domainID, id, dropFor[T](), vp)
	return &UninitRR[T]{heap: heap, types: types, typeID: id, addr: addr}
}

// InitWrite writes the initial value. It may be called exactly once, before
// AssumeInit.
func (u *UninitRR[T]) InitWrite(value T) {
	*u.heap.Value(u.addr).(*T) = value
}

// AssumeInit converts the handle into a fully-initialized RR[T]. The
// caller warrants that InitWrite has already run.
func (u *UninitRR[T]) AssumeInit() *RR[T] {
	return &RR[T]{heap: u.heap, types: u.types, typeID: u.typeID, addr: u.addr}
}
