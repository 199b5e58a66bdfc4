// Package upgrade implements the Upgrade Coordinator, a control-plane
// entry point for hot-swapping a registered domain's implementation:
// resolve the old domain, load the new image (or fall back to an empty
// placeholder if it cannot be loaded), build the new implementation, call
// the proxy's Replace, and update the registry — surfacing one of two
// error classes: invalid argument or init failure. A load failure is not
// returned; it installs the placeholder instead.
package upgrade

import (
	"fmt"
	"sync/atomic"

	"github.com/numpy1314/domain-runtime/core/domains"
	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/registry"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

// Builder constructs the kind-specific domain implementation for a freshly
// minted id. Symbol resolution and ELF-style parsing remain out of scope;
// Builder is the seam where a caller supplies whatever construction logic
// fills that gap — a test fixture, a hardcoded reference impl, or
// eventually a real loader-backed factory.
type Builder func(id sharedheap.DomainID) (any, error)

// Coordinator owns the collaborators UpdateDomain needs: the shared heap
// (for Replace's retag of the outgoing implementation), the registry (for
// resolving and re-publishing entries), and a Loader (for resolving the
// upgrade image).
type Coordinator struct {
	heap     *sharedheap.Heap
	registry *registry.Registry
	loader   loader.Loader
	cfg      proxy.Config

	nextDomainID atomic.Uint64
}

// New builds a Coordinator. cfg is stored on the Coordinator but not
// applied to replaced domains: each Replace runs with the proxy.Config its
// proxy was constructed with.
func New(heap *sharedheap.Heap, reg *registry.Registry, ld loader.Loader, cfg proxy.Config) *Coordinator {
	return &Coordinator{heap: heap, registry: reg, loader: ld, cfg: cfg}
}

// NextDomainID mints a fresh domain id, monotonically increasing from 1 so
// 0 stays free for any future sentinel use alongside
// sharedheap.EmptyDomainID.
func (c *Coordinator) NextDomainID() sharedheap.DomainID {
	return c.nextDomainID.Add(1)
}

// UpdateDomain resolves oldName in the registry (ErrInvalidArgument if
// absent or if its Kind does not match kind), loads newFile, mints a new
// domain id, builds the replacement implementation, and installs it via
// the matching proxy's Replace.
//
// A load failure does not fail the upgrade outright: it installs kind's
// empty placeholder implementation instead, tagged with
// sharedheap.EmptyDomainID, so a missing or unreadable image degrades the
// domain to "loaded but unimplemented" rather than leaving the old
// implementation in place with no record of the attempted upgrade. A
// builder failure against a successfully loaded image, or the new
// implementation's Init failing inside Replace, surfaces as
// ErrInitFailure.
//
// On success the registry entry's panic counter is reset to zero: the
// replaced domain starts its new life without inheriting the old
// implementation's panic history.
func (c *Coordinator) UpdateDomain(oldName, newFile string, kind registry.Kind, build Builder) error {
	entry, ok := c.registry.Lookup(oldName)
	if !ok {
		return fmt.Errorf("upgrade: update %q: %w: unknown domain", oldName, errs.ErrInvalidArgument)
	}
	if entry.Proxy.Kind != kind {
		return fmt.Errorf("upgrade: update %q: %w: have kind %v, want %v", oldName, errs.ErrInvalidArgument, entry.Proxy.Kind, kind)
	}

	record, loadErr := c.loader.Load(newFile)

	var newID sharedheap.DomainID
	var raw any
	if loadErr != nil {
		record = loader.Record{FileName: newFile}
		newID = sharedheap.EmptyDomainID
		raw = emptyPlaceholder(kind)
	} else {
		newID = c.NextDomainID()
		var err error
		raw, err = build(newID)
		if err != nil {
			return fmt.Errorf("upgrade: update %q: %w: %v", oldName, errs.ErrInitFailure, err)
		}
	}

	var err error
	switch kind {
	case registry.KindLogger:
		impl, ok := raw.(domains.Logger)
		if !ok {
			return fmt.Errorf("upgrade: update %q: %w: builder did not return a Logger", oldName, errs.ErrInvalidArgument)
		}
		err = proxy.Replace(entry.Proxy.Logger.Core, c.heap, impl, record, newID)
	case registry.KindNullDevice:
		impl, ok := raw.(domains.NullDevice)
		if !ok {
			return fmt.Errorf("upgrade: update %q: %w: builder did not return a NullDevice", oldName, errs.ErrInvalidArgument)
		}
		err = proxy.Replace(entry.Proxy.NullDevice.Core, c.heap, impl, record, newID)
	case registry.KindBlockDevice:
		impl, ok := raw.(domains.BlockDevice)
		if !ok {
			return fmt.Errorf("upgrade: update %q: %w: builder did not return a BlockDevice", oldName, errs.ErrInvalidArgument)
		}
		err = proxy.Replace(entry.Proxy.BlockDevice.Core, c.heap, impl, record, newID)
	default:
		return fmt.Errorf("upgrade: update %q: %w: unhandled kind %v", oldName, errs.ErrInvalidArgument, kind)
	}
	if err != nil {
		return fmt.Errorf("upgrade: update %q: %w", oldName, err)
	}
	entry.ResetPanic()
	return nil
}

// emptyPlaceholder builds kind's load-failure placeholder implementation.
func emptyPlaceholder(kind registry.Kind) any {
	switch kind {
	case registry.KindLogger:
		return domains.NewLoggerEmpty()
	case registry.KindNullDevice:
		return domains.NewNullDeviceEmpty()
	case registry.KindBlockDevice:
		return domains.NewBlockDeviceEmpty()
	default:
		return nil
	}
}
