package domains

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/rref"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
	"github.com/numpy1314/domain-runtime/core/typeid"
)

func TestNullDeviceEchoRoundTripsDataAndRetagsOwnership(t *testing.T) {
	heap := sharedheap.New()
	types := typeid.New()

	const callerDomain sharedheap.DomainID = 1
	const deviceDomain sharedheap.DomainID = 2

	p := NewNullDeviceProxy(NewNullDeviceEcho(deviceDomain), loader.Record{}, proxy.Config{})

	data := rref.New(heap, types, callerDomain, []byte("hello"))
	out, err := p.Read(data)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), *out.Deref())
	require.Equal(t, callerDomain, out.DomainID())
}

func TestNullDeviceUpgradeFromEchoToUnimplemented(t *testing.T) {
	// Scenario: v1 echoes successfully, then an upgrade to v2 makes every
	// call fail with ErrNotImplemented instead of panicking.
	heap := sharedheap.New()
	types := typeid.New()

	p := NewNullDeviceProxy(NewNullDeviceEcho(1), loader.Record{FileName: "v1"}, proxy.Config{})

	data := rref.New(heap, types, 9, []byte("ping"))
	out, err := p.Read(data)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), *out.Deref())

	err = proxy.Replace(p.Core, heap, NewNullDeviceUnimplemented(2), loader.Record{FileName: "v2"}, 2)
	require.NoError(t, err)

	_, err = p.Read(data)
	require.True(t, errors.Is(err, errs.ErrNotImplemented))

	_, err = p.Write(data)
	require.True(t, errors.Is(err, errs.ErrNotImplemented))
}

func TestNullDeviceEmptyPlaceholderCarriesEmptyDomainID(t *testing.T) {
	empty := NewNullDeviceEmpty()
	require.Equal(t, sharedheap.EmptyDomainID, empty.DomainID())

	_, err := empty.Read(nil)
	require.True(t, errors.Is(err, errs.ErrNotImplemented))
}
