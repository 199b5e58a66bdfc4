package upgrade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/domains"
	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/registry"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

type fakeLoader struct {
	fail bool
}

func (f fakeLoader) Load(file string) (loader.Record, error) {
	if f.fail {
		return loader.Record{}, errors.New("simulated load failure")
	}
	return loader.Record{FileName: file, Size: 1}, nil
}

func newTestCoordinator(t *testing.T, ld loader.Loader) (*Coordinator, *registry.Registry, *domains.LoggerProxy) {
	t.Helper()
	heap := sharedheap.New()
	reg := registry.New()
	p := domains.NewLoggerProxy(domains.NewLoggerImpl(1, nil), loader.Record{FileName: "v1"}, proxy.Config{})
	_, err := reg.Register("log0", registry.ProxyHandle{Kind: registry.KindLogger, Logger: p})
	require.NoError(t, err)
	return New(heap, reg, ld, proxy.Config{}), reg, p
}

func TestUpdateDomainUnknownNameIsInvalidArgument(t *testing.T) {
	c, _, _ := newTestCoordinator(t, fakeLoader{})
	err := c.UpdateDomain("nonexistent", "file", registry.KindLogger, func(sharedheap.DomainID) (any, error) {
		t.Fatal("build should not be called for an unknown domain")
		return nil, nil
	})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestUpdateDomainKindMismatchIsInvalidArgument(t *testing.T) {
	c, _, _ := newTestCoordinator(t, fakeLoader{})
	err := c.UpdateDomain("log0", "file", registry.KindNullDevice, func(sharedheap.DomainID) (any, error) {
		t.Fatal("build should not be called on a kind mismatch")
		return nil, nil
	})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestUpdateDomainLoadFailureInstallsEmptyPlaceholder(t *testing.T) {
	c, reg, p := newTestCoordinator(t, fakeLoader{fail: true})
	err := c.UpdateDomain("log0", "missing.img", registry.KindLogger, func(sharedheap.DomainID) (any, error) {
		t.Fatal("build should not be called when the loader fails")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, sharedheap.EmptyDomainID, p.DomainID())
	require.Equal(t, "missing.img", p.LoaderRecord().FileName)
	require.ErrorIs(t, p.Log("info", "hello"), errs.ErrNotImplemented)

	entry, ok := reg.Lookup("log0")
	require.True(t, ok)
	require.Zero(t, entry.PanicCount())
}

func TestUpdateDomainResetsPanicCountOnSuccess(t *testing.T) {
	c, reg, p := newTestCoordinator(t, fakeLoader{})
	entry, ok := reg.Lookup("log0")
	require.True(t, ok)
	p.PanicHook = func(sharedheap.DomainID, any) { entry.IncPanic() }
	func() {
		defer func() { recover() }()
		proxy.Dispatch(p.Core, func(domains.Logger) int { panic("boom") })
	}()
	require.EqualValues(t, 1, entry.PanicCount())

	err := c.UpdateDomain("log0", "v2.img", registry.KindLogger, func(id sharedheap.DomainID) (any, error) {
		return domains.NewLoggerImpl(id, nil), nil
	})
	require.NoError(t, err)
	require.Zero(t, entry.PanicCount())
}

func TestUpdateDomainSucceedsAndSwapsImplementation(t *testing.T) {
	c, _, p := newTestCoordinator(t, fakeLoader{})
	var builtID sharedheap.DomainID
	err := c.UpdateDomain("log0", "v2.img", registry.KindLogger, func(id sharedheap.DomainID) (any, error) {
		builtID = id
		return domains.NewLoggerImpl(id, nil), nil
	})
	require.NoError(t, err)
	require.Equal(t, builtID, p.DomainID())
	require.Equal(t, "v2.img", p.LoaderRecord().FileName)
}

func TestUpdateDomainBuilderMismatchIsInvalidArgument(t *testing.T) {
	c, _, _ := newTestCoordinator(t, fakeLoader{})
	err := c.UpdateDomain("log0", "v2.img", registry.KindLogger, func(id sharedheap.DomainID) (any, error) {
		return domains.NewNullDeviceEcho(id), nil
	})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}
