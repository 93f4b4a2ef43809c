package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAdminMetrics() {
	r.AdminCommandsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_admin_commands_total",
			Help: "Total number of admin commands executed",
		},
		[]string{"command", "status"},
	)

	r.AdminCommandDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgpool_admin_command_duration_seconds",
			Help:    "Admin command execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	r.AdminConnectionsOpen = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pgpool_admin_connections_open",
			Help: "Current number of open admin connections",
		},
	)
}
