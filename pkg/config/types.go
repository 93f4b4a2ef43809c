package config

import (
	"errors"
)

// Errors for configuration loading and validation
var (
	ErrNoPools           = errors.New("config must define at least one pool")
	ErrNoShards          = errors.New("pool must define at least one shard")
	ErrNoServers         = errors.New("shard must define at least one server")
	ErrNoUsers           = errors.New("pool must define at least one user")
	ErrDuplicateServer   = errors.New("duplicate server in shard")
	ErrInvalidPoolMode   = errors.New("invalid pool mode")
	ErrInvalidRole       = errors.New("invalid server role")
	ErrValidation        = errors.New("config validation failed")
)

// PoolMode determines how backend connections are assigned to clients
type PoolMode string

const (
	PoolModeSession     PoolMode = "session"
	PoolModeTransaction PoolMode = "transaction"
	PoolModeStatement   PoolMode = "statement"
)

// Role identifies a server's replication role within a shard
type Role string

const (
	RolePrimary Role = "primary"
	RoleReplica Role = "replica"
)

// Config is the root pooler configuration, loaded from YAML.
// A loaded Config is an immutable snapshot; RELOAD swaps the whole value.
type Config struct {
	General GeneralConfig         `yaml:"general"`
	Pools   map[string]PoolConfig `yaml:"pools" validate:"dive"`

	// Path the config was loaded from, used by RELOAD. Not part of the file.
	Path string `yaml:"-"`
}

// GeneralConfig holds process-wide settings
type GeneralConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`

	// OpsPort serves /health and /metrics over HTTP
	OpsPort uint16 `yaml:"ops_port"`

	// ConnectTimeoutMs bounds backend connection attempts
	ConnectTimeoutMs int `yaml:"connect_timeout"`

	PoolSize int `yaml:"pool_size"`

	// BanSweepIntervalSecs is how often the expiry reaper removes stale bans
	BanSweepIntervalSecs int `yaml:"ban_sweep_interval"`

	// HealthCheckIntervalSecs is how often backend reachability is probed
	HealthCheckIntervalSecs int `yaml:"healthcheck_interval"`

	LogLevel string `yaml:"log_level"`
}

// PoolConfig describes one virtual database exposed to clients
type PoolConfig struct {
	PoolMode PoolMode      `yaml:"pool_mode"`
	Shards   []ShardConfig `yaml:"shards" validate:"dive"`
	Users    []UserConfig  `yaml:"users" validate:"dive"`
}

// ShardConfig describes one shard: a backend database served by a
// primary and zero or more replicas
type ShardConfig struct {
	Database string         `yaml:"database" validate:"required"`
	Servers  []ServerConfig `yaml:"servers" validate:"dive"`
}

// ServerConfig describes one physical backend server
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port uint16 `yaml:"port" validate:"required"`
	Role Role   `yaml:"role"`
}

// UserConfig describes a configured pooler user. PoolMode, when set,
// overrides the pool's mode for this user's connections.
type UserConfig struct {
	Name     string   `yaml:"name" validate:"required"`
	Password string   `yaml:"password"`
	PoolMode PoolMode `yaml:"pool_mode"`
	PoolSize int      `yaml:"pool_size"`
}

// Setting is one flattened general-config entry, as reported by SHOW CONFIG
type Setting struct {
	Key        string
	Value      string
	Default    string
	Changeable bool
}
