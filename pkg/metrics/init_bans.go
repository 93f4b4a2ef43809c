package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBanMetrics() {
	r.BansTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_bans_total",
			Help: "Total number of servers newly banned",
		},
		[]string{"pool"},
	)

	r.UnbansTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpool_unbans_total",
			Help: "Total number of servers explicitly unbanned",
		},
		[]string{"pool"},
	)

	r.ActiveBans = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgpool_active_bans",
			Help: "Number of currently active bans",
		},
		[]string{"pool"},
	)

	r.BanSweepsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pgpool_ban_sweeps_total",
			Help: "Total number of expiry reaper sweeps",
		},
	)

	r.BansSweptTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pgpool_bans_swept_total",
			Help: "Total number of expired ban entries removed by the reaper",
		},
	)
}
