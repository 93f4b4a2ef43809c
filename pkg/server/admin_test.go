package server

import (
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pgpool/pkg/ban"
	"github.com/dd0wney/cluso-pgpool/pkg/config"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/stats"
)

func adminTestConfig() *config.Config {
	return &config.Config{
		General: config.GeneralConfig{
			Host: "127.0.0.1",
			Port: 6432,
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
				},
				Users: []config.UserConfig{
					{Name: "sharding_user", Password: "secret"},
				},
			},
		},
	}
}

// startTestServer binds an admin server on an ephemeral port
func startTestServer(t *testing.T) *AdminServer {
	t.Helper()

	logger := logging.NewNopLogger()
	manager := config.NewManager(adminTestConfig(), logger)
	registry := ban.NewRegistry(logger)
	collector := stats.NewCollector()

	srv := NewAdminServer(registry, manager, collector, nil, logger)
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	go srv.Serve()
	t.Cleanup(srv.Shutdown)

	return srv
}

// connectFrontend dials the admin server and completes the startup
// handshake, returning a frontend ready to issue queries
func connectFrontend(t *testing.T, srv *AdminServer) *pgproto3.Frontend {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	frontend := pgproto3.NewFrontend(conn, conn)
	frontend.Send(&pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters: map[string]string{
			"user":     "admin",
			"database": "sharded_db",
		},
	})
	require.NoError(t, frontend.Flush())

	for {
		msg, err := frontend.Receive()
		require.NoError(t, err)

		switch msg.(type) {
		case *pgproto3.AuthenticationOk, *pgproto3.ParameterStatus, *pgproto3.BackendKeyData:
			continue
		case *pgproto3.ReadyForQuery:
			return frontend
		default:
			t.Fatalf("unexpected startup response %T", msg)
		}
	}
}

// queryResult is the decoded wire answer to one simple query
type queryResult struct {
	columns []string
	rows    [][]string
	tag     string
	errCode string
	errMsg  string
}

// runQuery issues one simple-protocol query and collects the response
func runQuery(t *testing.T, frontend *pgproto3.Frontend, sql string) queryResult {
	t.Helper()

	frontend.Send(&pgproto3.Query{String: sql})
	require.NoError(t, frontend.Flush())

	var result queryResult
	for {
		msg, err := frontend.Receive()
		require.NoError(t, err)

		switch m := msg.(type) {
		case *pgproto3.RowDescription:
			for _, f := range m.Fields {
				result.columns = append(result.columns, string(f.Name))
			}
		case *pgproto3.DataRow:
			row := make([]string, len(m.Values))
			for i, v := range m.Values {
				row[i] = string(v)
			}
			result.rows = append(result.rows, row)
		case *pgproto3.CommandComplete:
			result.tag = string(m.CommandTag)
		case *pgproto3.ErrorResponse:
			result.errCode = m.Code
			result.errMsg = m.Message
		case *pgproto3.EmptyQueryResponse:
			// fall through to ReadyForQuery
		case *pgproto3.ReadyForQuery:
			return result
		default:
			t.Fatalf("unexpected response %T", msg)
		}
	}
}

func TestAdminServer_BanLifecycleOverWire(t *testing.T) {
	srv := startTestServer(t)
	frontend := connectFrontend(t, srv)

	banned := runQuery(t, frontend, "BAN localhost 60")
	assert.Equal(t, "BAN 2", banned.tag)
	assert.Equal(t, []string{"host", "port", "pool", "shard", "expires_at"}, banned.columns)
	require.Len(t, banned.rows, 2)
	assert.Equal(t, "localhost", banned.rows[0][0])
	assert.Equal(t, "sharded_db", banned.rows[0][2])

	shown := runQuery(t, frontend, "SHOW BANS")
	assert.Equal(t, "SHOW", shown.tag)
	assert.Len(t, shown.rows, 2)

	unbanned := runQuery(t, frontend, "UNBAN localhost")
	assert.Equal(t, "UNBAN 2", unbanned.tag)
	assert.Len(t, unbanned.rows, 2)

	empty := runQuery(t, frontend, "SHOW BANS")
	assert.Empty(t, empty.rows)
}

func TestAdminServer_ShowUsersOverWire(t *testing.T) {
	srv := startTestServer(t)
	frontend := connectFrontend(t, srv)

	result := runQuery(t, frontend, "SHOW USERS")
	assert.Equal(t, []string{"name", "pool_mode"}, result.columns)
	require.Len(t, result.rows, 1)
	assert.Equal(t, []string{"sharding_user", "transaction"}, result.rows[0])
}

func TestAdminServer_ParseErrorOverWire(t *testing.T) {
	srv := startTestServer(t)
	frontend := connectFrontend(t, srv)

	result := runQuery(t, frontend, "BAN localhost")
	assert.Equal(t, "42601", result.errCode)
	assert.NotEmpty(t, result.errMsg)

	// The connection must stay usable after an error
	ok := runQuery(t, frontend, "SHOW BANS")
	assert.Equal(t, "SHOW", ok.tag)
}

func TestAdminServer_UnknownCommandOverWire(t *testing.T) {
	srv := startTestServer(t)
	frontend := connectFrontend(t, srv)

	result := runQuery(t, frontend, "SELECT 1")
	assert.Equal(t, "42601", result.errCode)
}

func TestAdminServer_EmptyQueryOverWire(t *testing.T) {
	srv := startTestServer(t)
	frontend := connectFrontend(t, srv)

	result := runQuery(t, frontend, "   ")
	assert.Empty(t, result.tag)
	assert.Empty(t, result.errCode)
}

func TestAdminServer_UnknownDatabaseFallsBackToDefaultPool(t *testing.T) {
	srv := startTestServer(t)

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	frontend := pgproto3.NewFrontend(conn, conn)
	frontend.Send(&pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters: map[string]string{
			"user":     "admin",
			"database": "no_such_pool",
		},
	})
	require.NoError(t, frontend.Flush())

	for {
		msg, err := frontend.Receive()
		require.NoError(t, err)
		if _, ok := msg.(*pgproto3.ReadyForQuery); ok {
			break
		}
	}

	result := runQuery(t, frontend, "SHOW USERS")
	require.Len(t, result.rows, 1)
	assert.Equal(t, "sharding_user", result.rows[0][0])
}
