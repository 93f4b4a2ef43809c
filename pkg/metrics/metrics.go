package metrics

import (
	"time"
)

// RecordBan records newly banned servers in a pool
func (r *Registry) RecordBan(pool string, count int) {
	r.BansTotal.WithLabelValues(pool).Add(float64(count))
}

// RecordUnban records explicitly unbanned servers in a pool
func (r *Registry) RecordUnban(pool string, count int) {
	r.UnbansTotal.WithLabelValues(pool).Add(float64(count))
}

// SetActiveBans updates the active ban gauge for a pool
func (r *Registry) SetActiveBans(pool string, count int) {
	r.ActiveBans.WithLabelValues(pool).Set(float64(count))
}

// RecordSweep records one reaper pass and how many entries it removed
func (r *Registry) RecordSweep(removed int) {
	r.BanSweepsTotal.Inc()
	r.BansSweptTotal.Add(float64(removed))
}

// RecordAdminCommand records an admin command with its outcome and duration
func (r *Registry) RecordAdminCommand(command, status string, duration time.Duration) {
	r.AdminCommandsTotal.WithLabelValues(command, status).Inc()
	r.AdminCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordSelection records a routing decision for a pool
func (r *Registry) RecordSelection(pool string, failovers int, exhausted bool) {
	r.RoutingSelectionsTotal.WithLabelValues(pool).Inc()
	if failovers > 0 {
		r.RoutingFailoversTotal.WithLabelValues(pool).Add(float64(failovers))
	}
	if exhausted {
		r.RoutingExhaustedTotal.WithLabelValues(pool).Inc()
	}
}

// RecordHealthCheck records a backend reachability probe result
func (r *Registry) RecordHealthCheck(server string, healthy bool) {
	status := "ok"
	up := 1.0
	if !healthy {
		status = "failed"
		up = 0
	}
	r.BackendHealthChecksTotal.WithLabelValues(server, status).Inc()
	r.BackendUp.WithLabelValues(server).Set(up)
}
