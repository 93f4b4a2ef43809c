package admin

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/ban"
	"github.com/dd0wney/cluso-pgpool/pkg/config"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/metrics"
	"github.com/dd0wney/cluso-pgpool/pkg/pool"
	"github.com/dd0wney/cluso-pgpool/pkg/stats"
)

// Executor maps parsed commands onto the ban registry and the pool
// topology, producing result sets. One Executor serves one admin
// connection and is bound to that connection's pool context; each
// command works against a fresh config snapshot so a concurrent
// RELOAD never tears a command in half.
type Executor struct {
	registry *ban.Registry
	configs  *config.Manager
	stats    *stats.Collector
	metrics  *metrics.Registry
	logger   logging.Logger
	poolName string

	// now is the command clock; overridden in tests
	now func() time.Time
}

// NewExecutor creates an executor bound to a pool context.
// metrics may be nil (e.g. in tests).
func NewExecutor(
	registry *ban.Registry,
	configs *config.Manager,
	collector *stats.Collector,
	m *metrics.Registry,
	logger logging.Logger,
	poolName string,
) *Executor {
	return &Executor{
		registry: registry,
		configs:  configs,
		stats:    collector,
		metrics:  m,
		logger:   logger,
		poolName: poolName,
		now:      time.Now,
	}
}

// Execute runs one parsed command and returns its result set
func (e *Executor) Execute(cmd Command) (*ResultSet, error) {
	cfg := e.configs.Current()
	view, err := pool.NewView(cfg, e.poolName)
	if err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case BanCommand:
		return e.execBan(view, c)
	case UnbanCommand:
		return e.execUnban(view, c)
	case ShowBansCommand:
		return e.execShowBans(view)
	case ShowUsersCommand:
		return e.execShowUsers(view)
	case ShowDatabasesCommand:
		return e.execShowDatabases(cfg, view)
	case ShowStatsCommand:
		return e.execShowStats(view)
	case ShowConfigCommand:
		return e.execShowConfig(cfg)
	case ReloadCommand:
		return e.execReload()
	case SetCommand:
		// Ignored; answer with a bare SET completion
		return &ResultSet{Tag: "SET"}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedCommand, cmd)
	}
}

// execBan bans every server in the pool matching the command's host
// (and port, if given), across all shards. One row is returned per
// server newly banned; servers already banned are silently excluded,
// which makes BAN observably idempotent.
func (e *Executor) execBan(view *pool.View, c BanCommand) (*ResultSet, error) {
	now := e.now()

	rs := &ResultSet{
		Columns: []Column{
			{Name: "host", Type: ColumnText},
			{Name: "port", Type: ColumnInt4},
			{Name: "pool", Type: ColumnText},
			{Name: "shard", Type: ColumnInt4},
			{Name: "expires_at", Type: ColumnText},
		},
	}

	for _, target := range view.ResolveServers(c.Host, c.Port) {
		created, err := e.registry.Ban(view.Name(), target.Server, c.Duration, now)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}

		rs.AddRow(
			target.Server.Host,
			strconv.Itoa(int(target.Server.Port)),
			view.Name(),
			strconv.Itoa(target.Shard),
			now.Add(c.Duration).UTC().Format(time.RFC3339),
		)
	}

	rs.Tag = fmt.Sprintf("BAN %d", len(rs.Rows))

	if e.metrics != nil {
		e.metrics.RecordBan(view.Name(), len(rs.Rows))
		e.metrics.SetActiveBans(view.Name(), len(e.registry.PoolBans(view.Name(), now)))
	}

	return rs, nil
}

// execUnban removes matching live bans via the registry's host fan-out,
// so an `UNBAN host` with no port clears every port under that host,
// including servers no longer present in the config.
func (e *Executor) execUnban(view *pool.View, c UnbanCommand) (*ResultSet, error) {
	now := e.now()

	rs := &ResultSet{
		Columns: []Column{
			{Name: "host", Type: ColumnText},
			{Name: "port", Type: ColumnInt4},
			{Name: "pool", Type: ColumnText},
		},
	}

	for _, server := range e.registry.UnbanByHost(view.Name(), c.Host, c.Port, now) {
		rs.AddRow(
			server.Host,
			strconv.Itoa(int(server.Port)),
			view.Name(),
		)
	}

	rs.Tag = fmt.Sprintf("UNBAN %d", len(rs.Rows))

	if e.metrics != nil {
		e.metrics.RecordUnban(view.Name(), len(rs.Rows))
		e.metrics.SetActiveBans(view.Name(), len(e.registry.PoolBans(view.Name(), now)))
	}

	return rs, nil
}

// execShowBans returns one row per currently live ban in the pool,
// with the remaining time-to-live in whole seconds
func (e *Executor) execShowBans(view *pool.View) (*ResultSet, error) {
	now := e.now()

	rs := &ResultSet{
		Columns: []Column{
			{Name: "host", Type: ColumnText},
			{Name: "port", Type: ColumnInt4},
			{Name: "pool", Type: ColumnText},
			{Name: "shard", Type: ColumnInt4},
			{Name: "ttl_seconds", Type: ColumnInt4},
		},
		Tag: "SHOW",
	}

	for _, entry := range e.registry.PoolBans(view.Name(), now) {
		rs.AddRow(
			entry.Server.Host,
			strconv.Itoa(int(entry.Server.Port)),
			entry.Pool,
			strconv.Itoa(shardOf(view, entry.Server)),
			strconv.FormatInt(int64(entry.Remaining(now)/time.Second), 10),
		)
	}

	return rs, nil
}

// execShowUsers returns one row per configured user with its
// effective pool mode
func (e *Executor) execShowUsers(view *pool.View) (*ResultSet, error) {
	rs := &ResultSet{
		Columns: []Column{
			{Name: "name", Type: ColumnText},
			{Name: "pool_mode", Type: ColumnText},
		},
		Tag: "SHOW",
	}

	for _, user := range view.Users() {
		rs.AddRow(user.Name, string(user.PoolMode))
	}

	return rs, nil
}

// execShowDatabases returns one row per configured server, named by
// its place in the shard topology
func (e *Executor) execShowDatabases(cfg *config.Config, view *pool.View) (*ResultSet, error) {
	rs := &ResultSet{
		Columns: []Column{
			{Name: "name", Type: ColumnText},
			{Name: "host", Type: ColumnText},
			{Name: "port", Type: ColumnText},
			{Name: "database", Type: ColumnText},
			{Name: "pool_size", Type: ColumnInt4},
			{Name: "pool_mode", Type: ColumnText},
			{Name: "current_connections", Type: ColumnInt4},
			{Name: "paused", Type: ColumnInt4},
			{Name: "disabled", Type: ColumnInt4},
		},
		Tag: "SHOW",
	}

	conns := e.stats.SnapshotPool(view.Name()).ActiveConns

	for shard := 0; shard < view.Shards(); shard++ {
		replicaCount := 0
		for _, srv := range view.ShardServers(shard) {
			var name string
			if srv.Role == config.RolePrimary {
				name = fmt.Sprintf("shard_%d_primary", shard)
			} else {
				name = fmt.Sprintf("shard_%d_replica_%d", shard, replicaCount)
				replicaCount++
			}

			rs.AddRow(
				name,
				srv.Server.Host,
				strconv.Itoa(int(srv.Server.Port)),
				srv.Database,
				strconv.Itoa(cfg.General.PoolSize),
				string(view.Mode()),
				strconv.FormatInt(conns, 10),
				"0",
				"0",
			)
		}
	}

	return rs, nil
}

// execShowStats reports the pool's traffic counters
func (e *Executor) execShowStats(view *pool.View) (*ResultSet, error) {
	snap := e.stats.SnapshotPool(view.Name())

	rs := &ResultSet{
		Columns: []Column{
			{Name: "database", Type: ColumnText},
			{Name: "total_xact_count", Type: ColumnInt4},
			{Name: "total_query_count", Type: ColumnInt4},
			{Name: "total_received", Type: ColumnInt4},
			{Name: "total_sent", Type: ColumnInt4},
			{Name: "total_xact_time", Type: ColumnInt4},
			{Name: "total_query_time", Type: ColumnInt4},
			{Name: "total_wait_time", Type: ColumnInt4},
			{Name: "avg_xact_count", Type: ColumnInt4},
			{Name: "avg_query_count", Type: ColumnInt4},
			{Name: "avg_recv", Type: ColumnInt4},
			{Name: "avg_sent", Type: ColumnInt4},
			{Name: "avg_xact_time", Type: ColumnInt4},
			{Name: "avg_query_time", Type: ColumnInt4},
			{Name: "avg_wait_time", Type: ColumnInt4},
		},
		Tag: "SHOW",
	}

	rs.AddRow(
		snap.Pool,
		strconv.FormatInt(snap.XactCount, 10),
		strconv.FormatInt(snap.QueryCount, 10),
		strconv.FormatInt(snap.BytesReceived, 10),
		strconv.FormatInt(snap.BytesSent, 10),
		strconv.FormatInt(snap.XactTimeUs, 10),
		strconv.FormatInt(snap.QueryTimeUs, 10),
		strconv.FormatInt(snap.WaitTimeUs, 10),
		strconv.FormatInt(snap.AvgXactCount, 10),
		strconv.FormatInt(snap.AvgQueryCount, 10),
		strconv.FormatInt(snap.AvgRecv, 10),
		strconv.FormatInt(snap.AvgSent, 10),
		strconv.FormatInt(snap.AvgXactTimeUs, 10),
		strconv.FormatInt(snap.AvgQueryTimeUs, 10),
		strconv.FormatInt(snap.AvgWaitTimeUs, 10),
	)

	return rs, nil
}

// execShowConfig reports the flattened general config
func (e *Executor) execShowConfig(cfg *config.Config) (*ResultSet, error) {
	rs := &ResultSet{
		Columns: []Column{
			{Name: "key", Type: ColumnText},
			{Name: "value", Type: ColumnText},
			{Name: "default", Type: ColumnText},
			{Name: "changeable", Type: ColumnText},
		},
		Tag: "SHOW",
	}

	for _, setting := range cfg.Flatten() {
		changeable := "yes"
		if !setting.Changeable {
			changeable = "no"
		}
		rs.AddRow(setting.Key, setting.Value, setting.Default, changeable)
	}

	return rs, nil
}

// execReload re-reads the config file and swaps the active snapshot
func (e *Executor) execReload() (*ResultSet, error) {
	if _, err := e.configs.Reload(); err != nil {
		return nil, err
	}
	return &ResultSet{Tag: "RELOAD"}, nil
}

// shardOf locates a banned server in the current topology. Returns -1
// when the server is no longer configured (banned before a reload).
func shardOf(view *pool.View, server pool.ServerIdentity) int {
	for _, rs := range view.AllServers() {
		if rs.Server == server {
			return rs.Shard
		}
	}
	return -1
}
