// Package proxy implements the generic domain proxy: the sole externally
// reachable handle to one domain instance, dispatching every call through
// a dual fast/locked path selected by the upgrading flag, and exposing
// Replace, the live-replacement protocol.
//
// Flag/lock ordering: Replace publishes upgrading=true while holding
// writeLock. Go's sync.Mutex Lock/Unlock pair is documented by the
// language memory model to establish a happens-before edge equivalent to
// a release-acquire lock, so no additional fence is needed here.
package proxy
