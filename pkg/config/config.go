package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Defaults applied to fields left unset in the config file
const (
	DefaultPort                 = 6432
	DefaultOpsPort              = 9930
	DefaultConnectTimeoutMs     = 5000
	DefaultPoolSize             = 15
	DefaultBanSweepIntervalSecs = 1
	DefaultHealthIntervalSecs   = 30
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load reads, parses, and validates a pooler config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.Path = path
	return cfg, nil
}

// Parse unmarshals and validates raw YAML config bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in unset general settings
func (c *Config) applyDefaults() {
	if c.General.Host == "" {
		c.General.Host = "0.0.0.0"
	}
	if c.General.Port == 0 {
		c.General.Port = DefaultPort
	}
	if c.General.OpsPort == 0 {
		c.General.OpsPort = DefaultOpsPort
	}
	if c.General.ConnectTimeoutMs == 0 {
		c.General.ConnectTimeoutMs = DefaultConnectTimeoutMs
	}
	if c.General.PoolSize == 0 {
		c.General.PoolSize = DefaultPoolSize
	}
	if c.General.BanSweepIntervalSecs == 0 {
		c.General.BanSweepIntervalSecs = DefaultBanSweepIntervalSecs
	}
	if c.General.HealthCheckIntervalSecs == 0 {
		c.General.HealthCheckIntervalSecs = DefaultHealthIntervalSecs
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
}

// Validate checks the config beyond what struct tags can express
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if len(c.Pools) == 0 {
		return ErrNoPools
	}

	for name, pool := range c.Pools {
		if err := pool.validate(); err != nil {
			return fmt.Errorf("pool %q: %w", name, err)
		}
	}

	return nil
}

func (p *PoolConfig) validate() error {
	switch p.PoolMode {
	case PoolModeSession, PoolModeTransaction, PoolModeStatement:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPoolMode, p.PoolMode)
	}

	if len(p.Shards) == 0 {
		return ErrNoShards
	}
	if len(p.Users) == 0 {
		return ErrNoUsers
	}

	for i, shard := range p.Shards {
		if len(shard.Servers) == 0 {
			return fmt.Errorf("shard %d: %w", i, ErrNoServers)
		}

		seen := make(map[string]bool, len(shard.Servers))
		for _, srv := range shard.Servers {
			switch srv.Role {
			case RolePrimary, RoleReplica:
			default:
				return fmt.Errorf("shard %d: %w: %q", i, ErrInvalidRole, srv.Role)
			}

			addr := fmt.Sprintf("%s:%d", srv.Host, srv.Port)
			if seen[addr] {
				return fmt.Errorf("shard %d: %w: %s", i, ErrDuplicateServer, addr)
			}
			seen[addr] = true
		}
	}

	for _, user := range p.Users {
		if user.PoolMode != "" {
			switch user.PoolMode {
			case PoolModeSession, PoolModeTransaction, PoolModeStatement:
			default:
				return fmt.Errorf("user %q: %w: %q", user.Name, ErrInvalidPoolMode, user.PoolMode)
			}
		}
	}

	return nil
}

// DefaultPool returns the name of the pool used when a client connects
// without naming one. Pool names are sorted so the choice is stable
// across reloads.
func (c *Config) DefaultPool() string {
	names := maps.Keys(c.Pools)
	slices.Sort(names)
	return names[0]
}

// Flatten returns the general settings as SHOW CONFIG rows.
// Settings the process cannot apply without a restart are marked unchangeable.
func (c *Config) Flatten() []Setting {
	entries := map[string][2]string{
		"host":                 {c.General.Host, ""},
		"port":                 {strconv.Itoa(int(c.General.Port)), strconv.Itoa(DefaultPort)},
		"ops_port":             {strconv.Itoa(int(c.General.OpsPort)), strconv.Itoa(DefaultOpsPort)},
		"connect_timeout":      {strconv.Itoa(c.General.ConnectTimeoutMs), strconv.Itoa(DefaultConnectTimeoutMs)},
		"pool_size":            {strconv.Itoa(c.General.PoolSize), strconv.Itoa(DefaultPoolSize)},
		"ban_sweep_interval":   {strconv.Itoa(c.General.BanSweepIntervalSecs), strconv.Itoa(DefaultBanSweepIntervalSecs)},
		"healthcheck_interval": {strconv.Itoa(c.General.HealthCheckIntervalSecs), strconv.Itoa(DefaultHealthIntervalSecs)},
		"log_level":            {c.General.LogLevel, "info"},
	}

	immutable := map[string]bool{
		"host":            true,
		"port":            true,
		"connect_timeout": true,
	}

	keys := maps.Keys(entries)
	slices.Sort(keys)

	settings := make([]Setting, 0, len(keys))
	for _, key := range keys {
		settings = append(settings, Setting{
			Key:        key,
			Value:      entries[key][0],
			Default:    entries[key][1],
			Changeable: !immutable[key],
		})
	}

	return settings
}
