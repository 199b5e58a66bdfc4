package domains

import (
	"testing"

	logv3 "github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
)

func TestLoggerProxyDispatchesEveryLevel(t *testing.T) {
	p := NewLoggerProxy(NewLoggerImpl(1, logv3.Root()), loader.Record{}, proxy.Config{})
	for _, level := range []string{"debug", "info", "warn", "error"} {
		require.NoError(t, p.Log(level, "message"))
	}
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	p := NewLoggerProxy(NewLoggerImpl(1, logv3.Root()), loader.Record{}, proxy.Config{})
	require.Error(t, p.Log("trace", "message"))
}
