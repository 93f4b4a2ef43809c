package pool

import (
	"fmt"

	"github.com/dd0wney/cluso-pgpool/pkg/config"
)

// View is a read model over one configured pool: its shards, servers,
// and users. A View is built from a config snapshot and is immutable;
// it stays valid for the duration of a single admin command even if
// the config is reloaded concurrently.
type View struct {
	name    string
	mode    config.PoolMode
	shards  []config.ShardConfig
	users   []config.UserConfig
	servers []ResolvedServer
}

// NewView builds a view over the named pool in the given config snapshot
func NewView(cfg *config.Config, name string) (*View, error) {
	pc, ok := cfg.Pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, name)
	}

	v := &View{
		name:   name,
		mode:   pc.PoolMode,
		shards: pc.Shards,
		users:  pc.Users,
	}

	for shard, sc := range pc.Shards {
		for _, srv := range sc.Servers {
			v.servers = append(v.servers, ResolvedServer{
				Server:   ServerIdentity{Host: srv.Host, Port: srv.Port},
				Shard:    shard,
				Role:     srv.Role,
				Database: sc.Database,
			})
		}
	}

	return v, nil
}

// Name returns the pool name
func (v *View) Name() string {
	return v.name
}

// Mode returns the pool's configured pool mode
func (v *View) Mode() config.PoolMode {
	return v.mode
}

// Shards returns the number of shards in the pool
func (v *View) Shards() int {
	return len(v.shards)
}

// ShardDatabase returns the backend database name for a shard
func (v *View) ShardDatabase(shard int) (string, error) {
	if shard < 0 || shard >= len(v.shards) {
		return "", fmt.Errorf("%w: %d", ErrUnknownShard, shard)
	}
	return v.shards[shard].Database, nil
}

// AllServers returns every configured server across all shards,
// in shard order then config order
func (v *View) AllServers() []ResolvedServer {
	return v.servers
}

// ShardServers returns the servers of one shard, primary first
func (v *View) ShardServers(shard int) []ResolvedServer {
	var out []ResolvedServer
	for _, rs := range v.servers {
		if rs.Shard != shard {
			continue
		}
		if rs.Role == config.RolePrimary {
			out = append([]ResolvedServer{rs}, out...)
		} else {
			out = append(out, rs)
		}
	}
	return out
}

// ResolveServers returns all servers whose configured host matches
// exactly, across every shard of the pool. A port of 0 matches all
// ports under that host. Matching is by configured host string; no
// DNS resolution is attempted.
func (v *View) ResolveServers(host string, port int) []ResolvedServer {
	var out []ResolvedServer
	for _, rs := range v.servers {
		if rs.Server.Host != host {
			continue
		}
		if port != 0 && int(rs.Server.Port) != port {
			continue
		}
		out = append(out, rs)
	}
	return out
}

// Users returns the configured users with their effective pool mode
func (v *View) Users() []UserRecord {
	out := make([]UserRecord, 0, len(v.users))
	for _, u := range v.users {
		mode := u.PoolMode
		if mode == "" {
			mode = v.mode
		}
		out = append(out, UserRecord{Name: u.Name, PoolMode: mode})
	}
	return out
}
