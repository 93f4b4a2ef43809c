package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRoutingMetrics() {
	r.RoutingSelectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_routing_selections_total",
			Help: "Total number of server selections",
		},
		[]string{"pool"},
	)

	r.RoutingFailoversTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_routing_failovers_total",
			Help: "Total number of selections that skipped a banned candidate",
		},
		[]string{"pool"},
	)

	r.RoutingExhaustedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_routing_exhausted_total",
			Help: "Total number of selections that found no available server",
		},
		[]string{"pool"},
	)
}
