package health

import (
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/logging"
)

// NewChecker creates a checker; uptime is measured from this call
func NewChecker(logger logging.Logger) *Checker {
	return &Checker{
		logger: logger,
		start:  time.Now(),
		checks: make(map[string]registration),
	}
}

// RegisterCheck registers a check on the /health surface only
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.register(name, registration{fn: fn})
}

// RegisterReadinessCheck registers a check that also gates /ready
func (c *Checker) RegisterReadinessCheck(name string, fn CheckFunc) {
	c.register(name, registration{fn: fn, readiness: true})
}

// RegisterLivenessCheck registers a check that also gates /live
func (c *Checker) RegisterLivenessCheck(name string, fn CheckFunc) {
	c.register(name, registration{fn: fn, liveness: true})
}

func (c *Checker) register(name string, reg registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = reg
}

// Check answers the /health surface: every registered check
func (c *Checker) Check() Response {
	return c.probe("health", func(registration) bool { return true })
}

// CheckReadiness answers /ready with the readiness-gating checks.
// With none registered the pooler is considered ready.
func (c *Checker) CheckReadiness() Response {
	return c.probe("ready", func(r registration) bool { return r.readiness })
}

// CheckLiveness answers /live with the liveness-gating checks
func (c *Checker) CheckLiveness() Response {
	return c.probe("live", func(r registration) bool { return r.liveness })
}

// probe runs the checks selected for one surface; worst status wins
func (c *Checker) probe(surface string, selected func(registration) bool) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(c.start).Round(time.Second).String(),
		Checks:    make(map[string]Check),
	}

	for name, reg := range c.checks {
		if !selected(reg) {
			continue
		}

		start := time.Now()
		check := reg.fn()
		check.Duration = time.Since(start)
		check.LastChecked = start

		response.Checks[name] = check

		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	if response.Status != StatusHealthy {
		c.logger.Warn("health probe not healthy",
			logging.String("surface", surface),
			logging.String("status", string(response.Status)))
	}

	return response
}
