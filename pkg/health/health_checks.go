package health

import (
	"fmt"
)

// Common health check functions

// RegistryCheck reports the ban registry's entry count. The registry
// is in-memory and cannot fail; the count is surfaced for operators.
func RegistryCheck(entryCount func() int) CheckFunc {
	return func() Check {
		return Check{
			Name:   "ban_registry",
			Status: StatusHealthy,
			Details: map[string]any{
				"entries": entryCount(),
			},
		}
	}
}

// ConfigCheck verifies a config snapshot is loaded and reports its pool count
func ConfigCheck(poolCount func() int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "config",
			Details: make(map[string]any),
		}

		pools := poolCount()
		check.Details["pools"] = pools

		if pools == 0 {
			check.Status = StatusUnhealthy
			check.Message = "No pools configured"
		} else {
			check.Status = StatusHealthy
		}

		return check
	}
}

// BackendsCheck reports backend reachability from the prober's last pass
func BackendsCheck(prober *BackendProber) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "backends",
			Details: make(map[string]any),
		}

		up, down := prober.Counts()
		check.Details["up"] = up
		check.Details["down"] = down

		switch {
		case up == 0 && down == 0:
			check.Status = StatusHealthy
			check.Message = "No probes completed yet"
		case down == 0:
			check.Status = StatusHealthy
			check.Message = "All backends reachable"
		case up == 0:
			check.Status = StatusUnhealthy
			check.Message = "No backend reachable"
		default:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d of %d backends unreachable", down, up+down)
		}

		return check
	}
}
