package pool

import (
	"errors"
	"testing"

	"github.com/dd0wney/cluso-pgpool/pkg/config"
)

func viewTestConfig() *config.Config {
	return &config.Config{
		Pools: map[string]config.PoolConfig{
			"sharded_db": {
				PoolMode: config.PoolModeTransaction,
				Shards: []config.ShardConfig{
					{
						Database: "shard0",
						Servers: []config.ServerConfig{
							{Host: "localhost", Port: 5433, Role: config.RoleReplica},
							{Host: "localhost", Port: 5432, Role: config.RolePrimary},
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
					{Name: "sharding_user"},
					{Name: "reporting_user", PoolMode: config.PoolModeSession},
				},
			},
		},
	}
}

func TestNewView_UnknownPool(t *testing.T) {
	_, err := NewView(viewTestConfig(), "missing")
	if !errors.Is(err, ErrUnknownPool) {
		t.Errorf("Expected ErrUnknownPool, got %v", err)
	}
}

func TestView_Topology(t *testing.T) {
	view, err := NewView(viewTestConfig(), "sharded_db")
	if err != nil {
		t.Fatalf("NewView failed: %v", err)
	}

	if view.Name() != "sharded_db" {
		t.Errorf("Expected name sharded_db, got %s", view.Name())
	}
	if view.Mode() != config.PoolModeTransaction {
		t.Errorf("Expected transaction mode, got %s", view.Mode())
	}
	if view.Shards() != 2 {
		t.Errorf("Expected 2 shards, got %d", view.Shards())
	}
	if len(view.AllServers()) != 3 {
		t.Errorf("Expected 3 servers, got %d", len(view.AllServers()))
	}

	db, err := view.ShardDatabase(1)
	if err != nil {
		t.Fatalf("ShardDatabase failed: %v", err)
	}
	if db != "shard1" {
		t.Errorf("Expected shard1, got %s", db)
	}

	if _, err := view.ShardDatabase(7); !errors.Is(err, ErrUnknownShard) {
		t.Errorf("Expected ErrUnknownShard, got %v", err)
	}
}

func TestView_ShardServersPrimaryFirst(t *testing.T) {
	view, err := NewView(viewTestConfig(), "sharded_db")
	if err != nil {
		t.Fatalf("NewView failed: %v", err)
	}

	servers := view.ShardServers(0)
	if len(servers) != 2 {
		t.Fatalf("Expected 2 servers in shard 0, got %d", len(servers))
	}
	if servers[0].Role != config.RolePrimary {
		t.Errorf("Expected primary first, got %s", servers[0].Role)
	}
	if servers[0].Server.Port != 5432 {
		t.Errorf("Expected primary on port 5432, got %d", servers[0].Server.Port)
	}
}

func TestView_ResolveServers(t *testing.T) {
	view, err := NewView(viewTestConfig(), "sharded_db")
	if err != nil {
		t.Fatalf("NewView failed: %v", err)
	}

	tests := []struct {
		name string
		host string
		port int
		want int
	}{
		{"host matches both shards0 servers", "localhost", 0, 2},
		{"host and port narrow to one", "localhost", 5433, 1},
		{"different host", "10.0.0.2", 0, 1},
		{"unknown host", "db.example.com", 0, 0},
		{"known host unknown port", "localhost", 9999, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := view.ResolveServers(tt.host, tt.port)
			if len(got) != tt.want {
				t.Errorf("Expected %d servers, got %d", tt.want, len(got))
			}
		})
	}
}

func TestView_UsersEffectiveMode(t *testing.T) {
	view, err := NewView(viewTestConfig(), "sharded_db")
	if err != nil {
		t.Fatalf("NewView failed: %v", err)
	}

	users := view.Users()
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}

	if users[0].PoolMode != config.PoolModeTransaction {
		t.Errorf("Expected sharding_user to inherit transaction mode, got %s", users[0].PoolMode)
	}
	if users[1].PoolMode != config.PoolModeSession {
		t.Errorf("Expected reporting_user session override, got %s", users[1].PoolMode)
	}
}

func TestServerIdentity_String(t *testing.T) {
	id := ServerIdentity{Host: "localhost", Port: 5432}
	if id.String() != "localhost:5432" {
		t.Errorf("Expected localhost:5432, got %s", id.String())
	}
}
