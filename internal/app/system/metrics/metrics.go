// Package metrics holds the Prometheus collectors for the fundraising engines.
//
// All methods are nil-safe so engines and tests can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Hierarchy anomaly kinds.
const (
	AnomalyCycle    = "cycle"
	AnomalyTooDeep  = "too_deep"
	AnomalyDangling = "dangling_parent"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	hierarchyAnomalies *prometheus.CounterVec
	propagationRuns    *prometheus.CounterVec
	propagationLevels  prometheus.Counter
	concurrencyRetries *prometheus.CounterVec
	commissionRows     *prometheus.CounterVec
	commissionAmount   prometheus.Counter
	leaderboardCache   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hierarchyAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "hierarchy_anomalies_total",
			Help:      "Ancestor walks truncated by a cycle, excessive depth, or a dangling parent reference.",
		}, []string{"kind"}),
		propagationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "propagation_runs_total",
			Help:      "Upward team-collection propagation runs by outcome.",
		}, []string{"outcome"}),
		propagationLevels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "propagation_levels_updated_total",
			Help:      "Ancestor targets rewritten by propagation.",
		}),
		concurrencyRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "target_version_conflicts_total",
			Help:      "Optimistic-lock conflicts on target writes, by whether the retry recovered.",
		}, []string{"recovered"}),
		commissionRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "commission_rows_total",
			Help:      "Commission rows written, by hierarchy level.",
		}, []string{"level"}),
		commissionAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "commission_amount_total",
			Help:      "Sum of commission amounts written.",
		}),
		leaderboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundhub",
			Name:      "leaderboard_cache_lookups_total",
			Help:      "Leaderboard cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.hierarchyAnomalies,
			m.propagationRuns,
			m.propagationLevels,
			m.concurrencyRetries,
			m.commissionRows,
			m.commissionAmount,
			m.leaderboardCache,
		)
	}
	return m
}

func (m *Metrics) HierarchyAnomaly(kind string) {
	if m == nil {
		return
	}
	m.hierarchyAnomalies.WithLabelValues(kind).Inc()
}

func (m *Metrics) PropagationRun(outcome string, levels int) {
	if m == nil {
		return
	}
	m.propagationRuns.WithLabelValues(outcome).Inc()
	m.propagationLevels.Add(float64(levels))
}

func (m *Metrics) VersionConflict(recovered bool) {
	if m == nil {
		return
	}
	label := "false"
	if recovered {
		label = "true"
	}
	m.concurrencyRetries.WithLabelValues(label).Inc()
}

func (m *Metrics) CommissionRow(level string, amount float64) {
	if m == nil {
		return
	}
	m.commissionRows.WithLabelValues(level).Inc()
	m.commissionAmount.Add(amount)
}

func (m *Metrics) LeaderboardCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.leaderboardCache.WithLabelValues("hit").Inc()
		return
	}
	m.leaderboardCache.WithLabelValues("miss").Inc()
}
