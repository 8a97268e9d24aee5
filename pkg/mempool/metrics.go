package mempool

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics mirrors the retained-shared-instance pattern the rest of the
// corpus uses for prometheus registration: built once, referenced by every
// Mempool instance a process creates (there is normally exactly one).
type metrics struct {
	pending    prometheus.Gauge
	parked     prometheus.Gauge
	removed    *prometheus.CounterVec
	evictedTTL prometheus.Counter
}

var (
	metricsOnce   sync.Once
	sharedMetrics *metrics
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		m := &metrics{
			pending: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "sequencer_mempool_pending_transactions",
				Help: "Number of transactions currently in the pending (nonce-contiguous) containers.",
			}),
			parked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "sequencer_mempool_parked_transactions",
				Help: "Number of transactions currently parked on a nonce gap (insufficient balance removes a transaction instead).",
			}),
			removed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sequencer_mempool_removed_total",
				Help: "Transactions removed from the mempool, partitioned by reason.",
			}, []string{"reason"}),
			evictedTTL: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sequencer_mempool_ttl_evictions_total",
				Help: "Parked transactions evicted for exceeding the park TTL.",
			}),
		}
		prometheus.MustRegister(m.pending, m.parked, m.removed, m.evictedTTL)
		sharedMetrics = m
	})
	return sharedMetrics
}
