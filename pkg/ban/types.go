package ban

import (
	"errors"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/pool"
)

// Errors for ban registry operations
var (
	// ErrNonPositiveDuration is returned when a caller asks for a ban
	// that would expire at or before its creation time. Duration
	// validation belongs to the admin parser; this is the registry's
	// precondition check.
	ErrNonPositiveDuration = errors.New("ban duration must be positive")
)

// Entry is one live ban: a (pool, server) pair excluded from routing
// until ExpiresAt. At most one live Entry exists per (pool, server).
type Entry struct {
	Server   pool.ServerIdentity
	Pool     string
	BannedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer in force at the given time
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Remaining returns the time left before the entry expires, never negative
func (e Entry) Remaining(now time.Time) time.Duration {
	d := e.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// key is the primary registry key: one live entry per (pool, server)
type key struct {
	pool string
	host string
	port uint16
}

func keyFor(poolName string, server pool.ServerIdentity) key {
	return key{pool: poolName, host: server.Host, port: server.Port}
}
