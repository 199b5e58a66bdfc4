// Package runtime assembles the runtime context: an explicitly
// constructed struct owning the type registry, shared heap, domain
// registry, and upgrade coordinator, in place of global mutable state or
// lazily-initialized package-level singletons.
package runtime

import (
	logv3 "github.com/ledgerwatch/log/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/metrics"
	"github.com/numpy1314/domain-runtime/core/proxy"
	"github.com/numpy1314/domain-runtime/core/registry"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
	"github.com/numpy1314/domain-runtime/core/typeid"
	"github.com/numpy1314/domain-runtime/core/upgrade"
)

// Runtime owns every piece of process-wide state this module needs,
// replacing the lazily-initialized globals (type registry, shared heap,
// domain registry) the original design would otherwise keep as statics.
type Runtime struct {
	Types       *typeid.Registry
	Heap        *sharedheap.Heap
	Registry    *registry.Registry
	Coordinator *upgrade.Coordinator
	Loader      loader.Loader
	Log         logv3.Logger
}

// New constructs a Runtime with a FileLoader and a root logger. Callers
// that need a different Loader (e.g. a test fixture) use NewWithLoader.
func New() *Runtime {
	log := logv3.Root()
	return NewWithLoader(loader.FileLoader{}, log)
}

// NewWithLoader constructs a Runtime using ld for image resolution and log
// as the root structured logger. Recovered panics are routed into a
// registry entry's panic counter by the Register* methods, not by the
// proxy.Config built here.
func NewWithLoader(ld loader.Loader, log logv3.Logger) *Runtime {
	reg := registry.New()
	heap := sharedheap.New()
	types := typeid.New()
	cfg := proxy.Config{Logger: log}

	rt := &Runtime{
		Types:    types,
		Heap:     heap,
		Registry: reg,
		Loader:   ld,
		Log:      log,
	}
	rt.Coordinator = upgrade.New(heap, reg, ld, cfg)
	return rt
}

// ProxyConfig returns the proxy.Config new Core[D] instances use: the
// runtime's logger and no drain timeout. Panic routing is not part of it;
// the Register* methods set each proxy's PanicHook separately.
func (rt *Runtime) ProxyConfig() proxy.Config {
	return proxy.Config{Logger: rt.Log}
}

// PanicCountHook returns a proxy.PanicHook that bumps entry's panic
// counter and the domain_panic_count metric, and logs at warn level —
// host-side tracking of recovered domain panics without any mandated
// quarantine policy.
func (rt *Runtime) PanicCountHook(entry *registry.Entry) proxy.PanicHook {
	return func(domainID sharedheap.DomainID, recovered any) {
		entry.IncPanic()
		metrics.PanicCount.WithLabelValues(entry.Name).Inc()
		rt.Log.Warn("domain panic recovered", "domain", entry.Name, "domainID", domainID, "panic", recovered)
	}
}

// MustRegisterMetrics registers every core/metrics collector against reg.
func (rt *Runtime) MustRegisterMetrics(reg prometheus.Registerer) {
	metrics.MustRegister(reg)
}
