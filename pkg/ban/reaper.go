package ban

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-pgpool/pkg/logging"
)

// Reaper periodically sweeps expired entries out of the registry so
// they stop occupying memory. Expiry itself is enforced by the read
// paths; the reaper only bounds how long dead entries linger.
type Reaper struct {
	registry *Registry
	interval time.Duration
	logger   logging.Logger

	// onSweep, when set, observes the number of entries each sweep removed
	onSweep func(removed int)
}

// NewReaper creates a reaper sweeping the registry at the given interval
func NewReaper(registry *Registry, interval time.Duration, logger logging.Logger) *Reaper {
	return &Reaper{
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// OnSweep registers a callback invoked after every sweep, used to
// record sweep metrics. Must be called before Run.
func (r *Reaper) OnSweep(fn func(removed int)) {
	r.onSweep = fn
}

// Run sweeps on a fixed interval until the context is cancelled.
// It uses the registry's normal mutation path, so concurrent readers
// never observe partial state.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("ban reaper started", logging.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ban reaper stopped")
			return
		case now := <-ticker.C:
			removed := r.registry.Sweep(now)
			if removed > 0 {
				r.logger.Debug("swept expired bans", logging.Int("removed", removed))
			}
			if r.onSweep != nil {
				r.onSweep(removed)
			}
		}
	}
}
