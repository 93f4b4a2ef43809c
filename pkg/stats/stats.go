// Package stats tracks per-pool traffic counters reported by SHOW STATS.
//
// Counters are written on the hot query path, so they use atomics and
// never take a lock once a pool's slot exists.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// PoolStats holds the raw counters for one pool
type PoolStats struct {
	XactCount     atomic.Int64
	QueryCount    atomic.Int64
	BytesReceived atomic.Int64
	BytesSent     atomic.Int64
	XactTimeUs    atomic.Int64
	QueryTimeUs   atomic.Int64
	WaitTimeUs    atomic.Int64
	ActiveConns   atomic.Int64
}

// Snapshot is a point-in-time copy of one pool's counters, with
// per-second averages computed over the collector's lifetime
type Snapshot struct {
	Pool          string
	XactCount     int64
	QueryCount    int64
	BytesReceived int64
	BytesSent     int64
	XactTimeUs    int64
	QueryTimeUs   int64
	WaitTimeUs    int64
	ActiveConns   int64

	AvgXactCount  int64
	AvgQueryCount int64
	AvgRecv       int64
	AvgSent       int64
	AvgXactTimeUs int64
	AvgQueryTimeUs int64
	AvgWaitTimeUs int64
}

// Collector owns the per-pool counters
type Collector struct {
	mu    sync.RWMutex
	pools map[string]*PoolStats
	start time.Time
}

// NewCollector creates an empty stats collector
func NewCollector() *Collector {
	return &Collector{
		pools: make(map[string]*PoolStats),
		start: time.Now(),
	}
}

// Pool returns the counter slot for a pool, creating it on first use
func (c *Collector) Pool(name string) *PoolStats {
	c.mu.RLock()
	ps, ok := c.pools[name]
	c.mu.RUnlock()
	if ok {
		return ps
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ps, ok = c.pools[name]; ok {
		return ps
	}
	ps = &PoolStats{}
	c.pools[name] = ps
	return ps
}

// RecordQuery records one completed query for a pool
func (c *Collector) RecordQuery(pool string, duration time.Duration) {
	ps := c.Pool(pool)
	ps.QueryCount.Add(1)
	ps.QueryTimeUs.Add(duration.Microseconds())
}

// RecordXact records one completed transaction for a pool
func (c *Collector) RecordXact(pool string, duration time.Duration) {
	ps := c.Pool(pool)
	ps.XactCount.Add(1)
	ps.XactTimeUs.Add(duration.Microseconds())
}

// RecordWait records time a client spent waiting for a server
func (c *Collector) RecordWait(pool string, duration time.Duration) {
	c.Pool(pool).WaitTimeUs.Add(duration.Microseconds())
}

// RecordReceived records bytes received from clients of a pool
func (c *Collector) RecordReceived(pool string, n int64) {
	c.Pool(pool).BytesReceived.Add(n)
}

// RecordSent records bytes sent to clients of a pool
func (c *Collector) RecordSent(pool string, n int64) {
	c.Pool(pool).BytesSent.Add(n)
}

// ConnOpened records a client connection attaching to a pool
func (c *Collector) ConnOpened(pool string) {
	c.Pool(pool).ActiveConns.Add(1)
}

// ConnClosed records a client connection leaving a pool
func (c *Collector) ConnClosed(pool string) {
	c.Pool(pool).ActiveConns.Add(-1)
}

// SnapshotPool returns a copy of one pool's counters
func (c *Collector) SnapshotPool(name string) Snapshot {
	ps := c.Pool(name)

	elapsed := int64(time.Since(c.start).Seconds())
	if elapsed < 1 {
		elapsed = 1
	}

	snap := Snapshot{
		Pool:          name,
		XactCount:     ps.XactCount.Load(),
		QueryCount:    ps.QueryCount.Load(),
		BytesReceived: ps.BytesReceived.Load(),
		BytesSent:     ps.BytesSent.Load(),
		XactTimeUs:    ps.XactTimeUs.Load(),
		QueryTimeUs:   ps.QueryTimeUs.Load(),
		WaitTimeUs:    ps.WaitTimeUs.Load(),
		ActiveConns:   ps.ActiveConns.Load(),
	}

	snap.AvgXactCount = snap.XactCount / elapsed
	snap.AvgQueryCount = snap.QueryCount / elapsed
	snap.AvgRecv = snap.BytesReceived / elapsed
	snap.AvgSent = snap.BytesSent / elapsed
	snap.AvgXactTimeUs = snap.XactTimeUs / elapsed
	snap.AvgQueryTimeUs = snap.QueryTimeUs / elapsed
	snap.AvgWaitTimeUs = snap.WaitTimeUs / elapsed

	return snap
}
