package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the pooler
type Registry struct {
	registry *prometheus.Registry

	// Ban Metrics
	BansTotal       *prometheus.CounterVec
	UnbansTotal     *prometheus.CounterVec
	ActiveBans      *prometheus.GaugeVec
	BanSweepsTotal  prometheus.Counter
	BansSweptTotal  prometheus.Counter

	// Admin Metrics
	AdminCommandsTotal   *prometheus.CounterVec
	AdminCommandDuration *prometheus.HistogramVec
	AdminConnectionsOpen prometheus.Gauge

	// Routing Metrics
	RoutingSelectionsTotal *prometheus.CounterVec
	RoutingFailoversTotal  *prometheus.CounterVec
	RoutingExhaustedTotal  *prometheus.CounterVec

	// Backend Metrics
	BackendHealthChecksTotal *prometheus.CounterVec
	BackendUp                *prometheus.GaugeVec
}

// NewRegistry creates and registers all pooler metrics
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initBanMetrics()
	r.initAdminMetrics()
	r.initRoutingMetrics()
	r.initBackendMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
