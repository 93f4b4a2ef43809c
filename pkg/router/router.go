// Package router selects backend servers for client traffic, skipping
// servers the ban registry currently excludes.
package router

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/ban"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/metrics"
	"github.com/dd0wney/cluso-pgpool/pkg/pool"
)

// ErrNoAvailableServers is returned when every candidate server of a
// shard is currently banned
var ErrNoAvailableServers = errors.New("no available servers for shard")

// Selector picks a server for a shard of one pool. Selection consults
// the ban registry on every call, so a BAN takes effect on the very
// next routed query and an expiry takes effect without any sweep.
type Selector struct {
	registry *ban.Registry
	view     *pool.View
	metrics  *metrics.Registry
	logger   logging.Logger

	// rr feeds replica round-robin; one counter shared across shards
	// is fine since it only spreads load
	rr atomic.Uint64
}

// NewSelector creates a selector over one pool view.
// metrics may be nil.
func NewSelector(registry *ban.Registry, view *pool.View, m *metrics.Registry, logger logging.Logger) *Selector {
	return &Selector{
		registry: registry,
		view:     view,
		metrics:  m,
		logger:   logger,
	}
}

// SelectPrimary returns the shard's primary, or fails over to a
// replica when the primary is banned. Used for writes in a pinch;
// callers that must not read stale data should treat failover as an
// error instead.
func (s *Selector) SelectPrimary(shard int, now time.Time) (pool.ResolvedServer, error) {
	return s.selectFrom(s.view.ShardServers(shard), now)
}

// SelectReplica returns a replica of the shard chosen round-robin,
// falling back to the primary when every replica is banned
func (s *Selector) SelectReplica(shard int, now time.Time) (pool.ResolvedServer, error) {
	servers := s.view.ShardServers(shard)
	if len(servers) == 0 {
		return pool.ResolvedServer{}, ErrNoAvailableServers
	}

	// ShardServers puts the primary first; rotate the replicas and
	// keep the primary as the candidate of last resort.
	candidates := make([]pool.ResolvedServer, 0, len(servers))
	replicas := servers[1:]
	if len(replicas) > 0 {
		offset := int(s.rr.Add(1) % uint64(len(replicas)))
		for i := 0; i < len(replicas); i++ {
			candidates = append(candidates, replicas[(offset+i)%len(replicas)])
		}
	}
	candidates = append(candidates, servers[0])

	return s.selectFrom(candidates, now)
}

// selectFrom returns the first non-banned candidate
func (s *Selector) selectFrom(candidates []pool.ResolvedServer, now time.Time) (pool.ResolvedServer, error) {
	failovers := 0

	for _, candidate := range candidates {
		if s.registry.IsBanned(s.view.Name(), candidate.Server, now) {
			failovers++
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordSelection(s.view.Name(), failovers, false)
		}
		return candidate, nil
	}

	if s.metrics != nil {
		s.metrics.RecordSelection(s.view.Name(), failovers, true)
	}

	s.logger.Warn("all candidate servers banned",
		logging.Pool(s.view.Name()),
		logging.Int("candidates", len(candidates)))

	return pool.ResolvedServer{}, ErrNoAvailableServers
}
