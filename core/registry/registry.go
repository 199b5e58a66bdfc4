// Package registry implements the Domain Registry: it maps a domain name
// to its (domain id, proxy handle, type tag, file info, panic count).
// Rather than a single interface-typed ProxyHandle downcast by kind at
// call sites, Kind and ProxyHandle form a Go tagged union — a Kind
// discriminant plus one non-nil field per variant — so callers switch on
// Kind instead of performing a runtime type assertion.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/numpy1314/domain-runtime/core/domains"
	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

// Kind tags which variant of ProxyHandle is populated.
type Kind int

const (
	KindLogger Kind = iota
	KindNullDevice
	KindBlockDevice
)

// String renders Kind for log lines and CLI flag validation.
func (k Kind) String() string {
	switch k {
	case KindLogger:
		return "logger"
	case KindNullDevice:
		return "nulldevice"
	case KindBlockDevice:
		return "blockdevice"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a CLI/config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "logger":
		return KindLogger, nil
	case "nulldevice":
		return KindNullDevice, nil
	case "blockdevice":
		return KindBlockDevice, nil
	default:
		return 0, fmt.Errorf("registry: %w: unknown kind %q", errs.ErrInvalidArgument, s)
	}
}

// ProxyHandle is the tagged union over every concrete proxy type this
// runtime knows how to host. Exactly one field is populated, selected by
// Kind; callers branch on Kind rather than type-asserting an interface.
type ProxyHandle struct {
	Kind        Kind
	Logger      *domains.LoggerProxy
	NullDevice  *domains.NullDeviceProxy
	BlockDevice *domains.BlockDeviceProxy
}

// DomainID reads the handle's current domain id by dispatching into
// whichever variant is populated.
func (h ProxyHandle) DomainID() sharedheap.DomainID {
	switch h.Kind {
	case KindLogger:
		return h.Logger.DomainID()
	case KindNullDevice:
		return h.NullDevice.DomainID()
	case KindBlockDevice:
		return h.BlockDevice.DomainID()
	default:
		panic(fmt.Sprintf("registry: proxy handle: unhandled kind %v", h.Kind))
	}
}

// LoaderRecord reads the handle's current loader record the same way.
func (h ProxyHandle) LoaderRecord() loader.Record {
	switch h.Kind {
	case KindLogger:
		return h.Logger.LoaderRecord()
	case KindNullDevice:
		return h.NullDevice.LoaderRecord()
	case KindBlockDevice:
		return h.BlockDevice.LoaderRecord()
	default:
		panic(fmt.Sprintf("registry: proxy handle: unhandled kind %v", h.Kind))
	}
}

// Entry is one named domain's registry row.
type Entry struct {
	Name       string
	Proxy      ProxyHandle
	panicCount atomic.Uint64
}

// PanicCount reads the accumulated recovered-panic count for this entry.
func (e *Entry) PanicCount() uint64 { return e.panicCount.Load() }

// IncPanic bumps the entry's panic counter; wired as a Core.PanicHook by
// the runtime so a recovered domain panic — which does not quarantine the
// proxy — is still tracked per domain, even though this module enforces
// no quarantine threshold itself.
func (e *Entry) IncPanic() { e.panicCount.Add(1) }

// ResetPanic zeroes the entry's panic counter, called after a successful
// upgrade so a replaced domain starts its new life with a clean count.
func (e *Entry) ResetPanic() { e.panicCount.Store(0) }

// Registry is the process-wide name -> Entry table.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register installs a freshly constructed domain under name. It returns
// ErrInvalidArgument if name is already registered — re-registration goes
// through Replace instead, never a silent overwrite.
func (r *Registry) Register(name string, handle ProxyHandle) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return nil, fmt.Errorf("registry: register %q: %w: already registered", name, errs.ErrInvalidArgument)
	}
	e := &Entry{Name: name, Proxy: handle}
	r.entries[name] = e
	return e, nil
}

// Lookup returns the entry for name, or false if none exists.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Remove deletes name from the registry, e.g. after a domain is torn down
// for good rather than replaced.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Names returns every registered domain name, for listing/debugging.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
