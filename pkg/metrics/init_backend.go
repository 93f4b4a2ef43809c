package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBackendMetrics() {
	r.BackendHealthChecksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_backend_health_checks_total",
			Help: "Total number of backend reachability probes",
		},
		[]string{"server", "status"},
	)

	r.BackendUp = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgpool_backend_up",
			Help: "Whether the last reachability probe of a backend succeeded",
		},
		[]string{"server"},
	)
}
