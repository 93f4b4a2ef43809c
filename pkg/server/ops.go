package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-pgpool/pkg/health"
	"github.com/dd0wney/cluso-pgpool/pkg/metrics"
)

// NewOpsMux builds the operational HTTP surface: health probes and
// the Prometheus scrape endpoint. metrics may be nil, in which case
// /metrics is omitted.
func NewOpsMux(checker *health.Checker, m *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", checker.HTTPHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.HandleFunc("/live", checker.LivenessHandler())

	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(
			m.GetPrometheusRegistry(),
			promhttp.HandlerOpts{},
		))
	}

	return mux
}
