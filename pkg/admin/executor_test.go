package admin

import (
	"testing"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/ban"
	"github.com/dd0wney/cluso-pgpool/pkg/config"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/stats"
)

// testConfig mirrors the canonical two-shard sharded_db layout: shard 0
// has two localhost servers (primary + replica), shard 1 lives elsewhere.
func testConfig() *config.Config {
	return &config.Config{
		General: config.GeneralConfig{
			Host:     "0.0.0.0",
			Port:     6432,
			PoolSize: 15,
		},
		Pools: map[string]config.PoolConfig{
			"sharded_db": {
				PoolMode: config.PoolModeTransaction,
				Shards: []config.ShardConfig{
					{
						Database: "shard0",
						Servers: []config.ServerConfig{
							{Host: "localhost", Port: 5432, Role: config.RolePrimary},
							{Host: "localhost", Port: 5433, Role: config.RoleReplica},
						},
					},
					{
						Database: "shard1",
						Servers: []config.ServerConfig{
							{Host: "10.0.0.2", Port: 5432, Role: config.RolePrimary},
						},
					},
				},
				Users: []config.UserConfig{
					{Name: "sharding_user", PoolMode: config.PoolModeTransaction},
					{Name: "reporting_user", PoolMode: config.PoolModeSession},
					{Name: "plain_user"},
				},
			},
		},
	}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	logger := logging.NewNopLogger()
	registry := ban.NewRegistry(logger)
	manager := config.NewManager(testConfig(), logger)
	return NewExecutor(registry, manager, stats.NewCollector(), nil, logger, "sharded_db")
}

func mustExecute(t *testing.T, e *Executor, query string) *ResultSet {
	t.Helper()
	cmd, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", query, err)
	}
	rs, err := e.Execute(cmd)
	if err != nil {
		t.Fatalf("Execute(%q) failed: %v", query, err)
	}
	return rs
}

func TestExecutor_BanUnbanRoundTrip(t *testing.T) {
	e := newTestExecutor(t)

	// BAN localhost matches both servers of shard 0
	rs := mustExecute(t, e, "BAN localhost 10")
	if len(rs.Rows) != 2 {
		t.Fatalf("Expected 2 newly banned servers, got %d", len(rs.Rows))
	}
	for _, row := range rs.Rows {
		if row[0] != "localhost" {
			t.Errorf("Expected host localhost, got %q", row[0])
		}
	}

	// Identical repeat is an observable no-op
	if rs := mustExecute(t, e, "BAN localhost 10"); len(rs.Rows) != 0 {
		t.Errorf("Expected 0 rows on repeated BAN, got %d", len(rs.Rows))
	}

	if rs := mustExecute(t, e, "SHOW BANS"); len(rs.Rows) != 2 {
		t.Errorf("Expected 2 active bans, got %d", len(rs.Rows))
	}

	if rs := mustExecute(t, e, "UNBAN localhost"); len(rs.Rows) != 2 {
		t.Errorf("Expected 2 servers unbanned, got %d", len(rs.Rows))
	}
	if rs := mustExecute(t, e, "UNBAN localhost"); len(rs.Rows) != 0 {
		t.Errorf("Expected 0 rows on repeated UNBAN, got %d", len(rs.Rows))
	}
	if rs := mustExecute(t, e, "SHOW BANS"); len(rs.Rows) != 0 {
		t.Errorf("Expected no active bans after unban, got %d", len(rs.Rows))
	}
}

func TestExecutor_BanWithPort(t *testing.T) {
	e := newTestExecutor(t)

	rs := mustExecute(t, e, "BAN localhost 5433 10")
	if len(rs.Rows) != 1 {
		t.Fatalf("Expected 1 row for port-scoped ban, got %d", len(rs.Rows))
	}
	if rs.Rows[0][1] != "5433" {
		t.Errorf("Expected port 5433, got %q", rs.Rows[0][1])
	}

	// The other localhost server is unaffected
	if rs := mustExecute(t, e, "SHOW BANS"); len(rs.Rows) != 1 {
		t.Errorf("Expected 1 active ban, got %d", len(rs.Rows))
	}
}

func TestExecutor_BanUnknownHost(t *testing.T) {
	e := newTestExecutor(t)

	// No configured server matches; empty result, not an error
	rs := mustExecute(t, e, "BAN nosuchhost 10")
	if len(rs.Rows) != 0 {
		t.Errorf("Expected 0 rows for unknown host, got %d", len(rs.Rows))
	}
}

func TestExecutor_BanExpiry(t *testing.T) {
	e := newTestExecutor(t)

	start := time.Now()
	e.now = func() time.Time { return start }

	if rs := mustExecute(t, e, "BAN localhost 1"); len(rs.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rs.Rows))
	}

	// Two seconds later every ban has lapsed, with no sweep in between
	e.now = func() time.Time { return start.Add(2 * time.Second) }
	if rs := mustExecute(t, e, "SHOW BANS"); len(rs.Rows) != 0 {
		t.Errorf("Expected 0 active bans after expiry, got %d", len(rs.Rows))
	}
}

func TestExecutor_ShowBansTTL(t *testing.T) {
	e := newTestExecutor(t)

	start := time.Now()
	e.now = func() time.Time { return start }
	mustExecute(t, e, "BAN localhost 5432 60")

	e.now = func() time.Time { return start.Add(15 * time.Second) }
	rs := mustExecute(t, e, "SHOW BANS")
	if len(rs.Rows) != 1 {
		t.Fatalf("Expected 1 active ban, got %d", len(rs.Rows))
	}
	if ttl := rs.Rows[0][4]; ttl != "45" {
		t.Errorf("Expected 45s remaining, got %q", ttl)
	}
}

func TestExecutor_ShowUsers(t *testing.T) {
	e := newTestExecutor(t)

	rs := mustExecute(t, e, "SHOW USERS")
	if len(rs.Rows) != 3 {
		t.Fatalf("Expected 3 users, got %d", len(rs.Rows))
	}

	modes := make(map[string]string, len(rs.Rows))
	for _, row := range rs.Rows {
		modes[row[0]] = row[1]
	}

	if modes["sharding_user"] != "transaction" {
		t.Errorf("Expected sharding_user in transaction mode, got %q", modes["sharding_user"])
	}
	if modes["reporting_user"] != "session" {
		t.Errorf("Expected reporting_user in session mode, got %q", modes["reporting_user"])
	}
	// No override: inherits the pool's mode
	if modes["plain_user"] != "transaction" {
		t.Errorf("Expected plain_user to inherit transaction mode, got %q", modes["plain_user"])
	}
}

func TestExecutor_ShowDatabases(t *testing.T) {
	e := newTestExecutor(t)

	rs := mustExecute(t, e, "SHOW DATABASES")
	if len(rs.Rows) != 3 {
		t.Fatalf("Expected 3 server rows, got %d", len(rs.Rows))
	}

	if rs.Rows[0][0] != "shard_0_primary" {
		t.Errorf("Expected shard_0_primary first, got %q", rs.Rows[0][0])
	}
	if rs.Rows[1][0] != "shard_0_replica_0" {
		t.Errorf("Expected shard_0_replica_0 second, got %q", rs.Rows[1][0])
	}
	if rs.Rows[2][0] != "shard_1_primary" {
		t.Errorf("Expected shard_1_primary third, got %q", rs.Rows[2][0])
	}
}

func TestExecutor_ShowStats(t *testing.T) {
	logger := logging.NewNopLogger()
	registry := ban.NewRegistry(logger)
	manager := config.NewManager(testConfig(), logger)
	collector := stats.NewCollector()
	e := NewExecutor(registry, manager, collector, nil, logger, "sharded_db")

	collector.RecordQuery("sharded_db", time.Millisecond)
	collector.RecordQuery("sharded_db", time.Millisecond)

	rs := mustExecute(t, e, "SHOW STATS")
	if len(rs.Rows) != 1 {
		t.Fatalf("Expected 1 stats row, got %d", len(rs.Rows))
	}
	if rs.Rows[0][0] != "sharded_db" {
		t.Errorf("Expected database sharded_db, got %q", rs.Rows[0][0])
	}
	if rs.Rows[0][2] != "2" {
		t.Errorf("Expected total_query_count 2, got %q", rs.Rows[0][2])
	}
}

func TestExecutor_ShowConfig(t *testing.T) {
	e := newTestExecutor(t)

	rs := mustExecute(t, e, "SHOW CONFIG")
	if len(rs.Rows) == 0 {
		t.Fatal("Expected config rows")
	}

	changeable := make(map[string]string, len(rs.Rows))
	for _, row := range rs.Rows {
		changeable[row[0]] = row[3]
	}

	for _, key := range []string{"host", "port", "connect_timeout"} {
		if changeable[key] != "no" {
			t.Errorf("Expected %s to be unchangeable, got %q", key, changeable[key])
		}
	}
	if changeable["ban_sweep_interval"] != "yes" {
		t.Errorf("Expected ban_sweep_interval changeable, got %q", changeable["ban_sweep_interval"])
	}
}

func TestExecutor_Set(t *testing.T) {
	e := newTestExecutor(t)

	rs := mustExecute(t, e, "SET application_name = 'orm'")
	if rs.Tag != "SET" || len(rs.Rows) != 0 {
		t.Errorf("Expected bare SET completion, got tag %q with %d rows", rs.Tag, len(rs.Rows))
	}
}

func TestExecutor_BanIdempotenceAcrossCommands(t *testing.T) {
	e := newTestExecutor(t)

	// Banning a single port then the whole host only reports the
	// servers that actually changed state
	if rs := mustExecute(t, e, "BAN localhost 5432 60"); len(rs.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rs.Rows))
	}
	if rs := mustExecute(t, e, "BAN localhost 60"); len(rs.Rows) != 1 {
		t.Errorf("Expected only the replica newly banned, got %d rows", len(rs.Rows))
	}
	if rs := mustExecute(t, e, "SHOW BANS"); len(rs.Rows) != 2 {
		t.Errorf("Expected 2 active bans, got %d", len(rs.Rows))
	}
}
