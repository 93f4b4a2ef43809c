package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-pgpool/pkg/config"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/metrics"
)

// probeTarget is one backend to ping, with the credentials to use
type probeTarget struct {
	addr     string
	host     string
	port     uint16
	database string
	user     string
	password string
}

// pingFunc dials one backend; replaced in tests
type pingFunc func(ctx context.Context, target probeTarget) error

// BackendProber periodically pings every configured backend server and
// remembers which ones answered. It never mutates routing state; bans
// are an operator decision, the prober only supplies the evidence.
type BackendProber struct {
	configs  *config.Manager
	metrics  *metrics.Registry
	logger   logging.Logger
	interval time.Duration
	timeout  time.Duration
	ping     pingFunc

	mu     sync.RWMutex
	status map[string]error
}

// NewBackendProber creates a prober over all pools in the active config.
// metrics may be nil.
func NewBackendProber(configs *config.Manager, m *metrics.Registry, logger logging.Logger, interval time.Duration) *BackendProber {
	return &BackendProber{
		configs:  configs,
		metrics:  m,
		logger:   logger,
		interval: interval,
		timeout:  5 * time.Second,
		ping:     pingBackend,
		status:   make(map[string]error),
	}
}

// Run probes on a fixed interval until the context is cancelled.
// One immediate pass runs on startup so health reports don't stay
// empty for a whole interval.
func (p *BackendProber) Run(ctx context.Context) {
	p.logger.Info("backend prober started", logging.Duration("interval", p.interval))

	p.probeAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("backend prober stopped")
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

// probeAll pings every distinct backend in the current config snapshot
func (p *BackendProber) probeAll(ctx context.Context) {
	cfg := p.configs.Current()

	targets := make(map[string]probeTarget)
	for _, pc := range cfg.Pools {
		user, password := probeCredentials(pc)
		for _, shard := range pc.Shards {
			for _, srv := range shard.Servers {
				addr := fmt.Sprintf("%s:%d", srv.Host, srv.Port)
				if _, seen := targets[addr]; seen {
					continue
				}
				targets[addr] = probeTarget{
					addr:     addr,
					host:     srv.Host,
					port:     srv.Port,
					database: shard.Database,
					user:     user,
					password: password,
				}
			}
		}
	}

	results := make(map[string]error, len(targets))
	for addr, target := range targets {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.ping(probeCtx, target)
		cancel()

		results[addr] = err

		if p.metrics != nil {
			p.metrics.RecordHealthCheck(addr, err == nil)
		}
		if err != nil {
			p.logger.Warn("backend unreachable",
				logging.Server(target.host, target.port),
				logging.Error(err))
		}
	}

	p.mu.Lock()
	p.status = results
	p.mu.Unlock()
}

// Counts returns how many backends answered and failed the last pass
func (p *BackendProber) Counts() (up, down int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, err := range p.status {
		if err == nil {
			up++
		} else {
			down++
		}
	}
	return up, down
}

// Status returns the last probe error per backend address
func (p *BackendProber) Status() map[string]error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]error, len(p.status))
	for addr, err := range p.status {
		out[addr] = err
	}
	return out
}

// probeCredentials picks the first configured user of a pool
func probeCredentials(pc config.PoolConfig) (user, password string) {
	if len(pc.Users) == 0 {
		return "postgres", ""
	}
	return pc.Users[0].Name, pc.Users[0].Password
}

// pingBackend opens a short-lived pgx connection and pings it
func pingBackend(ctx context.Context, target probeTarget) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		target.host, target.port, target.database, target.user, target.password,
	)

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	return conn.Ping(ctx)
}
