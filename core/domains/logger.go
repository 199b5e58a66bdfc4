// Package domains hosts three worked-example capability sets — logger,
// null device, block device — and a reference implementation of each,
// built on core/proxy and core/rref the same way any concrete domain
// proxy is built around the generic Domain interface.
package domains

import (
	"fmt"

	logv3 "github.com/ledgerwatch/log/v3"

	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

// Logger is the simplest capability set: a domain that accepts structured
// log lines. It exists mainly to exercise Dispatch/Replace with a
// zero-payload call shape before the RR-carrying capabilities below.
type Logger interface {
	proxy.Domain
	Log(level, msg string) error
}

// loggerImpl is the reference Logger domain: it forwards to the host's
// structured logger, tagged with its own domain id so log lines survive a
// Replace that swaps in a differently-configured logger domain.
type loggerImpl struct {
	id  sharedheap.DomainID
	log logv3.Logger
}

// NewLoggerImpl constructs a reference Logger bound to id, writing through
// log (nil defaults to logv3.Root()).
func NewLoggerImpl(id sharedheap.DomainID, log logv3.Logger) Logger {
	if log == nil {
		log = logv3.Root()
	}
	return &loggerImpl{id: id, log: log}
}

func (l *loggerImpl) DomainID() sharedheap.DomainID { return l.id }

func (l *loggerImpl) Init() error { return nil }

func (l *loggerImpl) Log(level, msg string) error {
	switch level {
	case "debug":
		l.log.Debug(msg, "domainID", l.id)
	case "info":
		l.log.Info(msg, "domainID", l.id)
	case "warn":
		l.log.Warn(msg, "domainID", l.id)
	case "error":
		l.log.Error(msg, "domainID", l.id)
	default:
		return fmt.Errorf("domains: logger: unknown level %q", level)
	}
	return nil
}

// loggerEmpty is the placeholder installed when an upgrade's image cannot
// be loaded: it carries sharedheap.EmptyDomainID rather than a freshly
// minted id, and every call fails with ErrNotImplemented.
type loggerEmpty struct{}

// NewLoggerEmpty builds the load-failure placeholder.
func NewLoggerEmpty() Logger { return loggerEmpty{} }

func (loggerEmpty) DomainID() sharedheap.DomainID { return sharedheap.EmptyDomainID }
func (loggerEmpty) Init() error                   { return nil }
func (loggerEmpty) Log(string, string) error      { return errs.ErrNotImplemented }

// LoggerProxy is the externally reachable handle to a Logger domain,
// routing every call through proxy.Dispatch.
type LoggerProxy struct {
	*proxy.Core[Logger]
}

// NewLoggerProxy wraps initial behind a dual-path dispatcher.
func NewLoggerProxy(initial Logger, record loader.Record, cfg proxy.Config) *LoggerProxy {
	return &LoggerProxy{Core: proxy.NewCore[Logger](initial, record, cfg)}
}

func (p *LoggerProxy) Log(level, msg string) error {
	return proxy.Dispatch(p.Core, func(d Logger) error { return d.Log(level, msg) })
}
