package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_BanMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordBan("sharded_db", 2)
	r.RecordUnban("sharded_db", 2)
	r.SetActiveBans("sharded_db", 2)
	r.RecordSweep(1)

	if got := testutil.ToFloat64(r.BansTotal.WithLabelValues("sharded_db")); got != 2 {
		t.Errorf("Expected 2 bans recorded, got %v", got)
	}
	if got := testutil.ToFloat64(r.UnbansTotal.WithLabelValues("sharded_db")); got != 2 {
		t.Errorf("Expected 2 unbans recorded, got %v", got)
	}
	if got := testutil.ToFloat64(r.ActiveBans.WithLabelValues("sharded_db")); got != 2 {
		t.Errorf("Expected active bans gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.BanSweepsTotal); got != 1 {
		t.Errorf("Expected 1 sweep, got %v", got)
	}
	if got := testutil.ToFloat64(r.BansSweptTotal); got != 1 {
		t.Errorf("Expected 1 entry swept, got %v", got)
	}
}

func TestRegistry_AdminMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordAdminCommand("BAN", "ok", 5*time.Millisecond)
	r.RecordAdminCommand("BAN", "ok", 5*time.Millisecond)
	r.RecordAdminCommand("SHOW BANS", "error", time.Millisecond)

	if got := testutil.ToFloat64(r.AdminCommandsTotal.WithLabelValues("BAN", "ok")); got != 2 {
		t.Errorf("Expected 2 BAN commands, got %v", got)
	}
	if got := testutil.ToFloat64(r.AdminCommandsTotal.WithLabelValues("SHOW BANS", "error")); got != 1 {
		t.Errorf("Expected 1 failed SHOW BANS, got %v", got)
	}
}

func TestRegistry_RoutingMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordSelection("sharded_db", 0, false)
	r.RecordSelection("sharded_db", 1, false)
	r.RecordSelection("sharded_db", 2, true)

	if got := testutil.ToFloat64(r.RoutingSelectionsTotal.WithLabelValues("sharded_db")); got != 3 {
		t.Errorf("Expected 3 selections, got %v", got)
	}
	if got := testutil.ToFloat64(r.RoutingFailoversTotal.WithLabelValues("sharded_db")); got != 3 {
		t.Errorf("Expected 3 failovers, got %v", got)
	}
	if got := testutil.ToFloat64(r.RoutingExhaustedTotal.WithLabelValues("sharded_db")); got != 1 {
		t.Errorf("Expected 1 exhausted selection, got %v", got)
	}
}
