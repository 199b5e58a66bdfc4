package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/domains"
	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
)

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindLogger, KindNullDevice, KindBlockDevice} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	_, err := ParseKind("bogus")
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestRegisterLookupRemove(t *testing.T) {
	r := New()
	p := domains.NewLoggerProxy(domains.NewLoggerImpl(1, nil), loader.Record{}, proxy.Config{})

	entry, err := r.Register("log0", ProxyHandle{Kind: KindLogger, Logger: p})
	require.NoError(t, err)
	require.Equal(t, "log0", entry.Name)

	got, ok := r.Lookup("log0")
	require.True(t, ok)
	require.Same(t, entry, got)

	r.Remove("log0")
	_, ok = r.Lookup("log0")
	require.False(t, ok)
}

func TestRegisterDuplicateNameIsInvalidArgument(t *testing.T) {
	r := New()
	p := domains.NewLoggerProxy(domains.NewLoggerImpl(1, nil), loader.Record{}, proxy.Config{})
	_, err := r.Register("log0", ProxyHandle{Kind: KindLogger, Logger: p})
	require.NoError(t, err)

	_, err = r.Register("log0", ProxyHandle{Kind: KindLogger, Logger: p})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestProxyHandleDispatchesByKind(t *testing.T) {
	p := domains.NewLoggerProxy(domains.NewLoggerImpl(42, nil), loader.Record{FileName: "f"}, proxy.Config{})
	h := ProxyHandle{Kind: KindLogger, Logger: p}
	require.EqualValues(t, 42, h.DomainID())
	require.Equal(t, "f", h.LoaderRecord().FileName)
}

func TestEntryPanicCount(t *testing.T) {
	r := New()
	p := domains.NewLoggerProxy(domains.NewLoggerImpl(1, nil), loader.Record{}, proxy.Config{})
	entry, err := r.Register("log0", ProxyHandle{Kind: KindLogger, Logger: p})
	require.NoError(t, err)

	require.EqualValues(t, 0, entry.PanicCount())
	entry.IncPanic()
	entry.IncPanic()
	require.EqualValues(t, 2, entry.PanicCount())
}
