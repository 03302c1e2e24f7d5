// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits); this
// struct carries everything the attribution engines and their backends need.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration. Cookies are issued by the identity
	// service; this app only reads them.
	SessionKey       string        // Secret key for verifying session cookies
	SessionName      string        // Cookie name for sessions (default: fundhub-session)
	SessionDomain    string        // Cookie domain (blank means current host)
	SessionMaxAge    time.Duration // Cookie lifetime
	DemoAdminEnabled bool          // Accept the synthetic demo administrator

	// Leaderboard cache
	RedisAddr           string // blank disables the cache
	RedisPassword       string
	RedisDB             int
	LeaderboardCacheTTL time.Duration

	HierarchyMaxDepth int           // Bound on ancestor walks
	ReconcileInterval time.Duration // 0 disables the background reconciler

	WriteRateLimit  int // Write requests per client per window; 0 disables
	WriteRateWindow time.Duration

	AuditLog string // all, db, log or off
}
