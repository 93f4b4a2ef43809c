package ban

import (
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/pool"
)

// Registry is the process-wide table of banned servers. It is the
// single owner of all ban entries: the admin executor mutates it, the
// routing path reads it before every server selection, and the reaper
// sweeps it. All methods are safe for concurrent use.
//
// Callers pass the observation time explicitly. Reads self-filter by
// expiry, so correctness never depends on the reaper having run.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]Entry
	logger  logging.Logger
}

// NewRegistry creates an empty ban registry
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		entries: make(map[key]Entry),
		logger:  logger,
	}
}

// Ban inserts an entry for (pool, server) expiring at now+duration.
// Returns true if the entry was newly created, false if a live ban for
// the pair already exists (the existing expiry is left untouched).
// A previously expired entry is overwritten and counts as new.
func (r *Registry) Ban(poolName string, server pool.ServerIdentity, duration time.Duration, now time.Time) (bool, error) {
	if duration <= 0 {
		return false, ErrNonPositiveDuration
	}

	k := keyFor(poolName, server)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[k]; ok && !existing.Expired(now) {
		return false, nil
	}

	r.entries[k] = Entry{
		Server:   server,
		Pool:     poolName,
		BannedAt: now,
		ExpiresAt: now.Add(duration),
	}

	r.logger.Info("server banned",
		logging.Pool(poolName),
		logging.Server(server.Host, server.Port),
		logging.Duration("duration", duration))

	return true, nil
}

// Unban removes the live entry for (pool, server) if one exists.
// Returns whether a live entry was removed. An expired entry still
// sitting in the map is deleted but reported as not removed, matching
// what SHOW BANS and the routing path already observe.
func (r *Registry) Unban(poolName string, server pool.ServerIdentity, now time.Time) bool {
	k := keyFor(poolName, server)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[k]
	if !ok {
		return false
	}

	delete(r.entries, k)

	if existing.Expired(now) {
		return false
	}

	r.logger.Info("server unbanned",
		logging.Pool(poolName),
		logging.Server(server.Host, server.Port))

	return true
}

// UnbanByHost removes every live entry in the pool whose host matches,
// across all ports, and returns the identities removed in stable order.
// Port 0 matches all ports. This is a scan over live entries; ban
// counts stay small enough that a host index isn't worth carrying.
func (r *Registry) UnbanByHost(poolName, host string, port int, now time.Time) []pool.ServerIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []pool.ServerIdentity
	for k, e := range r.entries {
		if k.pool != poolName || k.host != host {
			continue
		}
		if port != 0 && int(k.port) != port {
			continue
		}

		delete(r.entries, k)
		if !e.Expired(now) {
			removed = append(removed, e.Server)
		}
	}

	sort.Slice(removed, func(i, j int) bool {
		if removed[i].Host != removed[j].Host {
			return removed[i].Host < removed[j].Host
		}
		return removed[i].Port < removed[j].Port
	})

	if len(removed) > 0 {
		r.logger.Info("host unbanned",
			logging.Pool(poolName),
			logging.String("host", host),
			logging.Int("servers", len(removed)))
	}

	return removed
}

// IsBanned reports whether a live, non-expired entry exists for
// (pool, server). This is the hot read on the server-selection path.
func (r *Registry) IsBanned(poolName string, server pool.ServerIdentity, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[keyFor(poolName, server)]
	return ok && !e.Expired(now)
}

// ActiveBans returns a snapshot of all non-expired entries across
// every pool, ordered by pool, host, then port.
func (r *Registry) ActiveBans(now time.Time) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}

	sortEntries(out)
	return out
}

// PoolBans returns the non-expired entries for one pool, ordered by
// host then port. Backs SHOW BANS for a pool context.
func (r *Registry) PoolBans(poolName string, now time.Time) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for k, e := range r.entries {
		if k.pool == poolName && !e.Expired(now) {
			out = append(out, e)
		}
	}

	sortEntries(out)
	return out
}

// Sweep removes every entry that has expired at the given time and
// returns how many were removed. Idempotent; safe to call redundantly
// or never, since reads filter by expiry on their own.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, e := range r.entries {
		if e.Expired(now) {
			delete(r.entries, k)
			removed++
		}
	}

	return removed
}

// Len returns the number of entries currently held, expired or not.
// Used by health reporting; routing decisions never use this.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Pool != entries[j].Pool {
			return entries[i].Pool < entries[j].Pool
		}
		if entries[i].Server.Host != entries[j].Server.Host {
			return entries[i].Server.Host < entries[j].Server.Host
		}
		return entries[i].Server.Port < entries[j].Server.Port
	})
}
