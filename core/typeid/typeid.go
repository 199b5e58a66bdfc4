// Package typeid implements the process-wide type-identity registry: a
// static type-id maps to a type-erased destructor, populated lazily on
// first use so the shared heap can reclaim blocks of unrelated types
// during domain teardown without the originating type being available at
// the call site.
package typeid

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/spaolacci/murmur3"
)

// ID is a 128-bit stable fingerprint for a static Go type. It is derived
// from the type's name as reflect.Type.String reports it (package name
// plus type name, not the full import path), not its in-memory layout, so
// it is stable across runs.
type ID [2]uint64

func (id ID) String() string {
	return fmt.Sprintf("%016x%016x", id[0], id[1])
}

// Of computes the fingerprint for T. Two calls for the same static type
// always produce the same ID within a process.
func Of[T any]() ID {
	var zero T
	name := reflect.TypeOf(&zero).Elem().String()
	hi, lo := murmur3.Sum128([]byte(name))
	return ID{hi, lo}
}

// DropFunc is a type-erased destructor: it knows how to run T's custom
// destructor given only a pointer to the value, without the call site
// knowing T.
type DropFunc func(value any)

// Registry is the process-wide map from ID to DropFunc. Contention is
// expected to be negligible: insertions only happen on the first RR[T] of
// each T ever constructed.
type Registry struct {
	mu    sync.Mutex
	drops map[ID]DropFunc
}

// New returns an empty registry. A host normally owns exactly one via
// runtime.Runtime.
func New() *Registry {
	return &Registry{drops: make(map[ID]DropFunc)}
}

// Register installs fn for id if no destructor is registered yet. It is
// idempotent: registering the same id twice is a no-op, not an error.
func (r *Registry) Register(id ID, fn DropFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drops[id]; ok {
		return
	}
	r.drops[id] = fn
}

// Lookup returns the destructor for id, or false if none was ever
// registered. Lookup itself only reports a miss, it does not panic —
// callers decide.
func (r *Registry) Lookup(id ID) (DropFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.drops[id]
	return fn, ok
}

// MustLookup returns the destructor for id or panics, for callers that
// treat an unknown type-id as a fatal error rather than a recoverable one.
// sharedheap.ReleaseDomain does not call it; it runs whatever dtor
// callback its caller supplies.
func (r *Registry) MustLookup(id ID) DropFunc {
	fn, ok := r.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("typeid: fatal: no destructor registered for type %s", id))
	}
	return fn
}
