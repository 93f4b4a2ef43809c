package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/ban"
	"github.com/dd0wney/cluso-pgpool/pkg/config"
	"github.com/dd0wney/cluso-pgpool/pkg/health"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/metrics"
	"github.com/dd0wney/cluso-pgpool/pkg/server"
	"github.com/dd0wney/cluso-pgpool/pkg/stats"
)

func main() {
	configPath := flag.String("config", "", "Path to pooler config file (default pooler.yaml, or set PGPOOL_CONFIG)")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	if *configPath == "" {
		if env := os.Getenv("PGPOOL_CONFIG"); env != "" {
			*configPath = env
		} else {
			*configPath = "pooler.yaml"
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.General.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(level))

	logger.Info("cluso-pgpool starting",
		logging.String("config", *configPath),
		logging.Int("pools", len(cfg.Pools)))

	manager := config.NewManager(cfg, logger)
	registry := ban.NewRegistry(logger)
	collector := stats.NewCollector()
	m := metrics.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ban expiry reaper
	sweepInterval := time.Duration(cfg.General.BanSweepIntervalSecs) * time.Second
	reaper := ban.NewReaper(registry, sweepInterval, logger)
	reaper.OnSweep(m.RecordSweep)
	go reaper.Run(ctx)

	// Backend reachability probes
	probeInterval := time.Duration(cfg.General.HealthCheckIntervalSecs) * time.Second
	prober := health.NewBackendProber(manager, m, logger, probeInterval)
	go prober.Run(ctx)

	// Health checks. Config gates readiness; backend reachability and
	// the registry only inform /health.
	checker := health.NewChecker(logger)
	checker.RegisterReadinessCheck("config", health.ConfigCheck(func() int {
		return len(manager.Current().Pools)
	}))
	checker.RegisterCheck("ban_registry", health.RegistryCheck(registry.Len))
	checker.RegisterCheck("backends", health.BackendsCheck(prober))

	// Admin wire server
	adminAddr := fmt.Sprintf("%s:%d", cfg.General.Host, cfg.General.Port)
	adminSrv := server.NewAdminServer(registry, manager, collector, m, logger)
	if err := adminSrv.Listen(adminAddr); err != nil {
		logger.Error("admin listen failed", logging.Error(err))
		os.Exit(1)
	}
	go func() {
		if err := adminSrv.ServeUntil(ctx); err != nil {
			logger.Error("admin server failed", logging.Error(err))
			cancel()
		}
	}()

	// Ops HTTP server: health probes and Prometheus scrape endpoint
	opsAddr := fmt.Sprintf("%s:%d", cfg.General.Host, cfg.General.OpsPort)
	opsSrv := server.NewGracefulServer(opsAddr, server.NewOpsMux(checker, m), logger)
	opsSrv.SetConfigReloadFunc(func() error {
		_, err := manager.Reload()
		return err
	})

	// Drain admin connections and stop the background loops before the
	// process exits
	opsSrv.OnShutdown(func() {
		cancel()
		adminSrv.Shutdown()
	})

	if err := opsSrv.Start(); err != nil {
		logger.Error("ops server failed", logging.Error(err))
		os.Exit(1)
	}
}
