package domains

import (
	"fmt"
	"sync"

	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/rref"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
	"github.com/numpy1314/domain-runtime/core/typeid"
)

const blockSize = 4096

// BlockDevice is a fixed-block-size storage capability. Its backing store
// is itself an RR, so a Replace that targets the proxy owning it retags
// the old buffer's block to the new domain id instead of freeing it. The
// replacement implementation does not read that block: it serves from
// whatever buffer it was built with, so written data is not carried over
// unless the new buffer is installed through SwapBuffer.
type BlockDevice interface {
	proxy.Domain
	ReadBlock(idx uint64) (*rref.RR[[]byte], error)
	WriteBlock(idx uint64, data []byte) error
	// SwapBuffer installs a new backing buffer and returns the previous
	// one, letting a caller migrate a ramdisk's contents into a freshly
	// sized RR without an intervening copy through the proxy boundary.
	SwapBuffer(newBuf *rref.RR[[]byte]) *rref.RR[[]byte]
	// Capacity reports the number of fixed-size blocks this device holds.
	Capacity() uint64
}

// blockDeviceRAMDisk is the reference implementation: an in-memory
// ramdisk whose single backing buffer is an RR allocated in the shared
// heap under this domain's id.
type blockDeviceRAMDisk struct {
	id    sharedheap.DomainID
	heap  *sharedheap.Heap
	types *typeid.Registry
	mu    sync.Mutex
	buf   *rref.RR[[]byte]
}

// NewBlockDeviceRAMDisk allocates a zeroed buf of blocks*blockSize bytes in
// heap, owned by id, and wraps it as a BlockDevice.
func NewBlockDeviceRAMDisk(heap *sharedheap.Heap, types *typeid.Registry, id sharedheap.DomainID, blocks uint64) BlockDevice {
	buf := rref.New[[]byte](heap, types, id, make([]byte, blocks*blockSize))
	return &blockDeviceRAMDisk{id: id, heap: heap, types: types, buf: buf}
}

func (b *blockDeviceRAMDisk) DomainID() sharedheap.DomainID { return b.id }
func (b *blockDeviceRAMDisk) Init() error                   { return nil }

func (b *blockDeviceRAMDisk) Capacity() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(*b.buf.Deref())) / blockSize
}

func (b *blockDeviceRAMDisk) ReadBlock(idx uint64) (*rref.RR[[]byte], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := *b.buf.Deref()
	start := idx * blockSize
	if start+blockSize > uint64(len(data)) {
		return nil, fmt.Errorf("domains: blockdevice: block %d out of range", idx)
	}
	block := make([]byte, blockSize)
	copy(block, data[start:start+blockSize])
	return rref.New[[]byte](b.heap, b.types, b.id, block), nil
}

func (b *blockDeviceRAMDisk) WriteBlock(idx uint64, data []byte) error {
	if len(data) != blockSize {
		return fmt.Errorf("domains: blockdevice: write of %d bytes, want %d", len(data), blockSize)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	backing := *b.buf.Deref()
	start := idx * blockSize
	if start+blockSize > uint64(len(backing)) {
		return fmt.Errorf("domains: blockdevice: block %d out of range", idx)
	}
	copy(backing[start:start+blockSize], data)
	return nil
}

func (b *blockDeviceRAMDisk) SwapBuffer(newBuf *rref.RR[[]byte]) *rref.RR[[]byte] {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.buf
	b.buf = newBuf
	return old
}

// blockDeviceEmpty is the placeholder installed when an upgrade's image
// cannot be loaded: it carries sharedheap.EmptyDomainID rather than a
// freshly minted id, reports zero capacity, ReadBlock and WriteBlock fail
// with ErrNotImplemented, and SwapBuffer hands its argument straight back.
type blockDeviceEmpty struct{}

// NewBlockDeviceEmpty builds the load-failure placeholder.
func NewBlockDeviceEmpty() BlockDevice { return blockDeviceEmpty{} }

func (blockDeviceEmpty) DomainID() sharedheap.DomainID { return sharedheap.EmptyDomainID }
func (blockDeviceEmpty) Init() error                   { return nil }
func (blockDeviceEmpty) Capacity() uint64              { return 0 }
func (blockDeviceEmpty) ReadBlock(uint64) (*rref.RR[[]byte], error) {
	return nil, errs.ErrNotImplemented
}
func (blockDeviceEmpty) WriteBlock(uint64, []byte) error { return errs.ErrNotImplemented }
func (blockDeviceEmpty) SwapBuffer(newBuf *rref.RR[[]byte]) *rref.RR[[]byte] {
	return newBuf
}

// BlockDeviceProxy is the externally reachable handle to a BlockDevice
// domain.
type BlockDeviceProxy struct {
	*proxy.Core[BlockDevice]
}

// NewBlockDeviceProxy wraps initial behind a dual-path dispatcher.
func NewBlockDeviceProxy(initial BlockDevice, record loader.Record, cfg proxy.Config) *BlockDeviceProxy {
	return &BlockDeviceProxy{Core: proxy.NewCore[BlockDevice](initial, record, cfg)}
}

func (p *BlockDeviceProxy) Capacity() uint64 {
	return proxy.Dispatch(p.Core, func(d BlockDevice) uint64 { return d.Capacity() })
}

func (p *BlockDeviceProxy) ReadBlock(idx uint64) (*rref.RR[[]byte], error) {
	type readResult struct {
		rr  *rref.RR[[]byte]
		err error
	}
	res := proxy.Dispatch(p.Core, func(d BlockDevice) readResult {
		rr, err := d.ReadBlock(idx)
		return readResult{rr: rr, err: err}
	})
	return res.rr, res.err
}

func (p *BlockDeviceProxy) WriteBlock(idx uint64, data []byte) error {
	return proxy.Dispatch(p.Core, func(d BlockDevice) error { return d.WriteBlock(idx, data) })
}

// SwapBuffer moves newBuf's ownership into the callee's domain and moves
// the buffer it displaces out to the caller's domain — a genuine ownership
// exchange, not a borrow-and-return, so each RR is retagged independently.
func (p *BlockDeviceProxy) SwapBuffer(newBuf *rref.RR[[]byte]) *rref.RR[[]byte] {
	return proxy.Dispatch(p.Core, func(d BlockDevice) *rref.RR[[]byte] {
		callerID := newBuf.MoveTo(d.DomainID())
		old := d.SwapBuffer(newBuf)
		old.MoveTo(callerID)
		return old
	})
}
