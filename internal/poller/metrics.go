package poller

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the poller.
type Metrics struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	staleDropped  prometheus.Counter
	loading       prometheus.Gauge
	stale         prometheus.Gauge
	lastSeq       prometheus.Gauge
}

// NewMetrics creates and registers the metrics for the poller.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmscope_poll_cycles_total",
			Help: "Poll cycles finished, labeled by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farmscope_poll_cycle_duration_seconds",
			Help:    "Time taken by one poll cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		staleDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmscope_stale_snapshots_dropped_total",
			Help: "Snapshots discarded because a newer cycle was already published.",
		}),
		loading: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "farmscope_snapshot_loading",
			Help: "1 when the latest published snapshot still had pending reads.",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "farmscope_snapshot_stale",
			Help: "1 after too many consecutive loading snapshots.",
		}),
		lastSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "farmscope_snapshot_sequence",
			Help: "Sequence number of the latest published snapshot.",
		}),
	}
	reg.MustRegister(m.cyclesTotal, m.cycleDuration, m.staleDropped, m.loading, m.stale, m.lastSeq)
	return m
}

func boolGauge(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
