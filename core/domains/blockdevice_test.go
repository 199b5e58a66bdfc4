package domains

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/rref"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
	"github.com/numpy1314/domain-runtime/core/typeid"
)

func TestBlockDeviceWriteThenReadRoundTrips(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	dev := NewBlockDeviceRAMDisk(heap, types, 1, 4)
	p := NewBlockDeviceProxy(dev, loader.Record{}, proxy.Config{})

	block := make([]byte, blockSize)
	copy(block, []byte("hello block"))
	require.NoError(t, p.WriteBlock(2, block))

	rr, err := p.ReadBlock(2)
	require.NoError(t, err)
	require.Equal(t, block, *rr.Deref())
}

func TestBlockDeviceCapacityReflectsBlockCount(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	dev := NewBlockDeviceRAMDisk(heap, types, 1, 4)
	p := NewBlockDeviceProxy(dev, loader.Record{}, proxy.Config{})
	require.EqualValues(t, 4, p.Capacity())

	newBuf := rref.New[[]byte](heap, types, 9, make([]byte, 2*blockSize))
	p.SwapBuffer(newBuf)
	require.EqualValues(t, 2, p.Capacity())
}

func TestBlockDeviceEmptyPlaceholderReportsZeroCapacity(t *testing.T) {
	empty := NewBlockDeviceEmpty()
	require.Equal(t, sharedheap.EmptyDomainID, empty.DomainID())
	require.Zero(t, empty.Capacity())
}

func TestBlockDeviceOutOfRangeErrors(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	dev := NewBlockDeviceRAMDisk(heap, types, 1, 2)
	p := NewBlockDeviceProxy(dev, loader.Record{}, proxy.Config{})

	_, err := p.ReadBlock(99)
	require.Error(t, err)

	err = p.WriteBlock(99, make([]byte, blockSize))
	require.Error(t, err)
}

func TestBlockDeviceSwapBufferInstallsNewBackingBuffer(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	dev := NewBlockDeviceRAMDisk(heap, types, 1, 2)
	p := NewBlockDeviceProxy(dev, loader.Record{}, proxy.Config{})

	newBuf := rref.New[[]byte](heap, types, 9, make([]byte, 2*blockSize))
	old := p.SwapBuffer(newBuf)
	require.NotNil(t, old)

	block := make([]byte, blockSize)
	copy(block, []byte("surviving data"))
	require.NoError(t, p.WriteBlock(0, block))

	// The backing buffer is now newBuf: SwapBuffer retagged it to the
	// device's domain and handed the displaced buffer back to the caller's
	// domain, so writes and reads go through newBuf.
	rr, err := p.ReadBlock(0)
	require.NoError(t, err)
	require.Equal(t, block, *rr.Deref())
}
