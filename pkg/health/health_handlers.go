package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves /health. Degraded still answers 200; the pooler
// keeps working with some backends down, the body carries the detail.
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return c.handler(c.Check, false)
}

// ReadinessHandler serves /ready. Binary: degraded means not ready.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return c.handler(c.CheckReadiness, true)
}

// LivenessHandler serves /live. Binary: degraded means not alive.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return c.handler(c.CheckLiveness, true)
}

func (c *Checker) handler(probe func() Response, binary bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := probe()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode(response.Status, binary))
		json.NewEncoder(w).Encode(response)
	}
}

func statusCode(s Status, binary bool) int {
	switch s {
	case StatusHealthy:
		return http.StatusOK
	case StatusDegraded:
		if binary {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}
