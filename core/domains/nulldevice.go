package domains

import (
	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/rref"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

// NullDevice is a read/write byte-stream domain whose payloads cross the
// proxy boundary as RRs, so ownership moves by retag, not copy.
type NullDevice interface {
	proxy.Domain
	Read(data *rref.RR[[]byte]) (*rref.RR[[]byte], error)
	Write(data *rref.RR[[]byte]) (int, error)
}

// nullDeviceEcho is the v1 reference implementation: it returns the same
// bytes it was handed.
type nullDeviceEcho struct {
	id sharedheap.DomainID
}

// NewNullDeviceEcho builds the v1 echo implementation.
func NewNullDeviceEcho(id sharedheap.DomainID) NullDevice {
	return &nullDeviceEcho{id: id}
}

func (n *nullDeviceEcho) DomainID() sharedheap.DomainID { return n.id }
func (n *nullDeviceEcho) Init() error                   { return nil }

func (n *nullDeviceEcho) Read(data *rref.RR[[]byte]) (*rref.RR[[]byte], error) {
	return data, nil
}

func (n *nullDeviceEcho) Write(data *rref.RR[[]byte]) (int, error) {
	return len(*data.Deref()), nil
}

// nullDeviceUnimplemented is a reference implementation an echo device can
// be upgraded into: every call fails with ErrNotImplemented, returning a
// well-defined error instead of panicking.
type nullDeviceUnimplemented struct {
	id sharedheap.DomainID
}

// NewNullDeviceUnimplemented builds the v2 reference implementation.
func NewNullDeviceUnimplemented(id sharedheap.DomainID) NullDevice {
	return &nullDeviceUnimplemented{id: id}
}

func (n *nullDeviceUnimplemented) DomainID() sharedheap.DomainID { return n.id }
func (n *nullDeviceUnimplemented) Init() error                   { return nil }

func (n *nullDeviceUnimplemented) Read(*rref.RR[[]byte]) (*rref.RR[[]byte], error) {
	return nil, errs.ErrNotImplemented
}

func (n *nullDeviceUnimplemented) Write(*rref.RR[[]byte]) (int, error) {
	return 0, errs.ErrNotImplemented
}

// nullDeviceEmpty is the placeholder installed when a loader fails to
// produce a real image: it carries sharedheap.EmptyDomainID rather than a
// freshly minted id, and Read and Write fail the same way
// nullDeviceUnimplemented's do, so only the domain id (or the registry's
// file-info) distinguishes "loaded but unimplemented" from "never loaded".
type nullDeviceEmpty struct{}

// NewNullDeviceEmpty builds the load-failure placeholder.
func NewNullDeviceEmpty() NullDevice { return nullDeviceEmpty{} }

func (nullDeviceEmpty) DomainID() sharedheap.DomainID { return sharedheap.EmptyDomainID }
func (nullDeviceEmpty) Init() error                   { return nil }
func (nullDeviceEmpty) Read(*rref.RR[[]byte]) (*rref.RR[[]byte], error) {
	return nil, errs.ErrNotImplemented
}
func (nullDeviceEmpty) Write(*rref.RR[[]byte]) (int, error) { return 0, errs.ErrNotImplemented }

// NullDeviceProxy is the externally reachable handle to a NullDevice
// domain. Read retags its RR argument to the callee's domain for the
// duration of the call and retags a non-nil result back, written out
// inline per method rather than through a shared combinator since Read's
// borrow-and-restore shape and Write's differ in what they hand back.
type NullDeviceProxy struct {
	*proxy.Core[NullDevice]
}

// NewNullDeviceProxy wraps initial behind a dual-path dispatcher.
func NewNullDeviceProxy(initial NullDevice, record loader.Record, cfg proxy.Config) *NullDeviceProxy {
	return &NullDeviceProxy{Core: proxy.NewCore[NullDevice](initial, record, cfg)}
}

type nullDeviceReadResult struct {
	rr  *rref.RR[[]byte]
	err error
}

func (p *NullDeviceProxy) Read(data *rref.RR[[]byte]) (*rref.RR[[]byte], error) {
	res := proxy.Dispatch(p.Core, func(d NullDevice) nullDeviceReadResult {
		oldID := data.MoveTo(d.DomainID())
		defer data.MoveTo(oldID)
		rr, err := d.Read(data)
		if rr != nil && rr != data {
			rr.MoveTo(oldID)
		}
		return nullDeviceReadResult{rr: rr, err: err}
	})
	return res.rr, res.err
}

func (p *NullDeviceProxy) Write(data *rref.RR[[]byte]) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	res := proxy.Dispatch(p.Core, func(d NullDevice) writeResult {
		oldID := data.MoveTo(d.DomainID())
		defer data.MoveTo(oldID)
		n, err := d.Write(data)
		return writeResult{n: n, err: err}
	})
	return res.n, res.err
}
