// Package meshmetrics exposes the MLE core's internal counters and gauges
// as Prometheus metrics: package-level vectors plus a Register function,
// rather than a struct threaded through every call site.
package meshmetrics

import "github.com/prometheus/client_golang/prometheus"

// NeighborTableSize tracks how many entries are currently occupied in a
// table, labeled by table name; only "child" is reported.
var NeighborTableSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "mle_neighbor_table_entries",
	Help: "Number of occupied entries in a neighbor table.",
}, []string{"table"})

// FramesDroppedTotal counts dropped inbound frames by [mleerr.Code]. It is
// registered, but no code in this module increments it.
var FramesDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "mle_frames_dropped_total",
	Help: "Total number of inbound MLE frames dropped, by reason code.",
}, []string{"code"})

// AdvertiseIntervalSeconds is a histogram of the trickle interval in effect
// at advertisement send time. It is registered, but no code in this module
// records an observation.
var AdvertiseIntervalSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "mle_advertise_interval_seconds",
	Help:    "Advertise trickle interval in effect at send time.",
	Buckets: []float64{1, 2, 4, 8, 16, 32},
})

// RouterIDsAllocated reports how many router IDs (at most 32 at a time)
// are currently allocated.
var RouterIDsAllocated = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "mle_router_ids_allocated",
	Help: "Number of router IDs currently allocated by this leader.",
})

// Role reports the current role as a one-hot gauge vector, labeled by role
// name, so a Grafana panel can chart role transitions over time.
var Role = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "mle_role",
	Help: "1 for the currently active role, 0 for all others.",
}, []string{"role"})

// Register adds every metric in this package to registry.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		NeighborTableSize,
		FramesDroppedTotal,
		AdvertiseIntervalSeconds,
		RouterIDsAllocated,
		Role,
	)
}

// SetRole zeroes every role gauge except active, the one-hot update the
// dispatch loop calls on every tick.
func SetRole(active string, all []string) {
	for _, r := range all {
		if r == active {
			Role.WithLabelValues(r).Set(1)
		} else {
			Role.WithLabelValues(r).Set(0)
		}
	}
}
