package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.HierarchyAnomaly(AnomalyCycle)
	m.PropagationRun("ok", 3)
	m.VersionConflict(true)
	m.CommissionRow("top", 1500)
	m.LeaderboardCache(false)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.HierarchyAnomaly(AnomalyCycle)
	m.HierarchyAnomaly(AnomalyCycle)
	m.PropagationRun("ok", 2)
	m.CommissionRow("parent", 500)
	m.CommissionRow("top", 1500)

	if got := testutil.ToFloat64(m.hierarchyAnomalies.WithLabelValues(AnomalyCycle)); got != 2 {
		t.Errorf("cycle anomalies = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.propagationLevels); got != 2 {
		t.Errorf("propagation levels = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.commissionAmount); got != 2000 {
		t.Errorf("commission amount = %v, want 2000", got)
	}
}
