package pool

import "github.com/prometheus/client_golang/prometheus"

// metrics is an optional bundle of prometheus collectors. A Pool created
// without a registry runs with a nil *metrics, whose methods are all safe
// no-ops.
type metrics struct {
	leased     prometheus.Gauge
	open       prometheus.Gauge
	reconnects prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, address string) *metrics {
	if reg == nil {
		return nil
	}
	labels := prometheus.Labels{"address": address}
	m := &metrics{
		leased: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mredis_pool_leased_connections",
			Help:        "Connections currently leased out of the pool.",
			ConstLabels: labels,
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mredis_pool_open_connections",
			Help:        "Connections currently open (free + leased).",
			ConstLabels: labels,
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mredis_pool_reconnect_attempts_total",
			Help:        "Reconnect attempts made since the pool was created.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.leased, m.open, m.reconnects)
	return m
}

func (m *metrics) setLeased(n int) {
	if m == nil {
		return
	}
	m.leased.Set(float64(n))
}

func (m *metrics) setOpen(n int) {
	if m == nil {
		return
	}
	m.open.Set(float64(n))
}

func (m *metrics) incReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
