// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/commission"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/leaderboard"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/ledger"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/propagation"
	auditstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/audit"
	commissionstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/commissions"
	targetstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/targets"
	transactionstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/transactions"
	userstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/users"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/metrics"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// LeaderboardCachePrefix namespaces leaderboard keys in Redis.
const LeaderboardCachePrefix = "fundhub:leaderboard:"

// Services is the wired application: stores, engines and their shared
// instrumentation.
type Services struct {
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Audit    *auditlog.Logger

	// AuditEvents is the store behind Audit, read by the audit listing.
	AuditEvents *auditstore.Store

	Users     *userstore.Store
	Directory *hierarchy.Directory

	Targets     *targeting.Service
	Propagation *propagation.Engine
	Ledger      *ledger.Ledger
	Commissions *commission.Engine
	Leaderboard *leaderboard.Aggregator

	// Reconciler is nil when reconcile_interval is 0.
	Reconciler *propagation.Reconciler
}

// buildServices constructs every engine over the MongoDB stores. rdb may be nil.
func buildServices(db *mongo.Database, rdb *redis.Client, appCfg AppConfig, logger *zap.Logger) *Services {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	users := userstore.New(db)
	targets := targetstore.New(db, logger)
	transactions := transactionstore.New(db)
	commissions := commissionstore.New(db, logger)

	dir := hierarchy.New(users, logger,
		hierarchy.WithMaxDepth(appCfg.HierarchyMaxDepth),
		hierarchy.WithMetrics(m))

	svc := targeting.New(targets, dir, logger)
	prop := propagation.New(dir, targets, logger, m)

	var cache leaderboard.Cache
	if rdb != nil {
		cache = leaderboard.NewRedisCache(rdb, LeaderboardCachePrefix, appCfg.LeaderboardCacheTTL, logger, m)
	}

	events := auditstore.New(db)

	s := &Services{
		Registry:    reg,
		Metrics:     m,
		Audit:       auditlog.New(events, logger, auditlog.Config{Mode: appCfg.AuditLog}),
		AuditEvents: events,
		Users:       users,
		Directory:   dir,
		Targets:     svc,
		Propagation: prop,
		Ledger:      ledger.New(transactions, svc, prop, dir, logger),
		Commissions: commission.New(dir, commissions, logger, m),
		Leaderboard: leaderboard.New(targets, dir, cache, logger),
	}
	if appCfg.ReconcileInterval > 0 {
		s.Reconciler = propagation.NewReconciler(prop, targets, logger, appCfg.ReconcileInterval)
	}
	return s
}
