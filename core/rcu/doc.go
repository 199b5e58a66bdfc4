package rcu

// Ordering note: this package relies on Go's documented memory model for
// sync/atomic.Pointer — a Store happens-before any Load that observes it,
// the release/acquire pair an RCU pointer swap and dereference need. No
// additional fences are needed.
