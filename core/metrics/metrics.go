// Package metrics declares the runtime's Prometheus collectors as
// package-level vars created once at import time, registered with the
// default registry by whatever binary wires in an HTTP exporter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ProxyInflight is the gauge for the per-CPU inflight sum at a Replace
	// drain, labeled by domain name. It is registered by MustRegister; no
	// code in this module sets it.
	ProxyInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "domain_proxy_inflight",
		Help: "Fast-path calls observed in flight during the last drain.",
	}, []string{"domain"})

	// UpgradesTotal is the counter for sys_update_domain outcomes by result.
	// It is registered by MustRegister; no code in this module increments it.
	UpgradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_upgrades_total",
		Help: "Upgrade attempts by result: ok, invalid_argument, load_failure, init_failure.",
	}, []string{"result"})

	// DrainDuration is the histogram for how long Proxy.replace's drain step
	// took. It is registered by MustRegister; no code in this module
	// observes into it.
	DrainDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domain_proxy_drain_duration_seconds",
		Help:    "Time spent waiting for inflight fast-path calls to drain during replace.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})

	// PanicCount counts recovered panics from domain calls, per domain name.
	PanicCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_panic_count",
		Help: "Panics recovered from a domain's underlying implementation at the proxy boundary.",
	}, []string{"domain"})
)

// MustRegister registers every collector in reg (typically
// prometheus.DefaultRegisterer, or a test-local registry).
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(ProxyInflight, UpgradesTotal, DrainDuration, PanicCount)
}
