package rref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/sharedheap"
	"github.com/numpy1314/domain-runtime/core/typeid"
)

type counter struct {
	n       int
	dropped *int
}

func (c *counter) CustomDrop() {
	*c.dropped++
}

func TestNewDerefDomainID(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	r := New(heap, types, 1, 123)
	require.Equal(t, 123, *r.Deref())
	require.Equal(t, sharedheap.DomainID(1), r.DomainID())
}

func TestMoveToRoundTrips(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	r := New(heap, types, 1, "payload")
	old := r.MoveTo(2)
	require.Equal(t, sharedheap.DomainID(1), old)
	require.Equal(t, sharedheap.DomainID(2), r.DomainID())

	old = r.MoveTo(old)
	require.Equal(t, sharedheap.DomainID(2), old)
	require.Equal(t, sharedheap.DomainID(1), r.DomainID())
}

func TestReleaseRunsCustomDropAndFrees(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	dropped := 0
	r := New(heap, types, 1, counter{dropped: &dropped})
	addr := r.Addr()

	r.Release()

	require.Equal(t, 1, dropped)
	require.Panics(t, func() { heap.Value(addr) })
}

func TestForgetSuppressesRelease(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	dropped := 0
	r := New(heap, types, 1, counter{dropped: &dropped})
	addr := r.Addr()

	r.Forget()
	r.Release()

	require.Equal(t, 0, dropped)
	require.NotPanics(t, func() { heap.Value(addr) })
}

func TestUninitRRInitWriteThenAssumeInit(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	u := NewUninit[int](heap, types, 1)
	u.InitWrite(55)
	r := u.AssumeInit()

	require.Equal(t, 55, *r.Deref())
}
