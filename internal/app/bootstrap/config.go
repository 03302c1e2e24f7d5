// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for FundHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: FUNDHUB_MONGO_URI, FUNDHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "fundhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key shared with the identity service"},
	{Name: "session_name", Default: "fundhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},
	{Name: "demo_admin_enabled", Default: false, Desc: "Accept sessions for the synthetic demo administrator"},

	// Redis backs the leaderboard cache; blank disables it.
	{Name: "redis_addr", Default: "", Desc: "Redis address (host:port); blank disables caching"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "leaderboard_cache_ttl", Default: "30s", Desc: "How long a computed leaderboard is served from cache"},

	{Name: "hierarchy_max_depth", Default: hierarchy.DefaultMaxDepth, Desc: "Maximum ancestor chain length before truncation"},
	{Name: "reconcile_interval", Default: "15m", Desc: "Interval of the target reconciler (0 disables it)"},

	// Rate limiting of write endpoints, per client address.
	{Name: "write_rate_limit", Default: 120, Desc: "Write requests allowed per client per window (0 disables)"},
	{Name: "write_rate_window", Default: "1m", Desc: "Rate limit window"},

	{Name: "audit_log", Default: "all", Desc: "Audit event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, FUNDHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FUNDHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	// Operation timeouts are read before any backend is dialed.
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Any("timeouts", timeouts.Current()))
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),
		DemoAdminEnabled: appValues.Bool("demo_admin_enabled"),

		RedisAddr:           appValues.String("redis_addr"),
		RedisPassword:       appValues.String("redis_password"),
		RedisDB:             appValues.Int("redis_db"),
		LeaderboardCacheTTL: appValues.Duration("leaderboard_cache_ttl", 30*time.Second),

		HierarchyMaxDepth: appValues.Int("hierarchy_max_depth"),
		ReconcileInterval: appValues.Duration("reconcile_interval", 15*time.Minute),

		WriteRateLimit:  appValues.Int("write_rate_limit"),
		WriteRateWindow: appValues.Duration("write_rate_window", time.Minute),

		AuditLog: appValues.String("audit_log"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// It rejects values that would only fail later, after connections are
// open: a malformed MongoDB URI, an unknown audit mode, or limits that make
// no sense.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if !auditlog.ValidMode(appCfg.AuditLog) {
		return fmt.Errorf("audit_log must be one of all, db, log, off (got %q)", appCfg.AuditLog)
	}
	if appCfg.HierarchyMaxDepth <= 0 {
		return fmt.Errorf("hierarchy_max_depth must be positive (got %d)", appCfg.HierarchyMaxDepth)
	}
	if appCfg.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile_interval must not be negative")
	}
	if appCfg.WriteRateLimit < 0 {
		return fmt.Errorf("write_rate_limit must not be negative")
	}
	if appCfg.WriteRateLimit > 0 && appCfg.WriteRateWindow <= 0 {
		return fmt.Errorf("write_rate_window must be positive when write_rate_limit is set")
	}
	if appCfg.RedisAddr != "" && appCfg.LeaderboardCacheTTL <= 0 {
		return fmt.Errorf("leaderboard_cache_ttl must be positive when redis_addr is set")
	}
	if coreCfg != nil && coreCfg.Env == "prod" {
		if len(appCfg.SessionKey) < minSessionKeyLen {
			return fmt.Errorf("session_key must be at least %d characters in prod", minSessionKeyLen)
		}
		if appCfg.DemoAdminEnabled {
			logger.Warn("demo administrator sessions are enabled in production")
		}
	}
	return nil
}
