package health

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/logging"
)

// Status of one component, or of the pooler as a whole
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of probing one pooler component
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc probes one component
type CheckFunc func() Check

// registration records which probe surfaces a check participates in.
// Every check answers on /health; readiness and liveness are opt-in.
type registration struct {
	fn        CheckFunc
	readiness bool
	liveness  bool
}

// Checker aggregates component checks into the pooler's /health,
// /ready and /live answers. Overall status is the worst status of any
// participating check.
type Checker struct {
	logger logging.Logger
	start  time.Time

	mu     sync.RWMutex
	checks map[string]registration
}

// Response is the aggregate answer for one probe surface
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
}
