// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/auditlog"
	collectionsfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/collections"
	commissionsfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/commissions"
	errorsfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	healthfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/health"
	leaderboardfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/leaderboard"
	targetsfeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/targets"
	userinfofeature "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/userinfo"
	userstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/users"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so deps.Services is populated.
//
// Every feature speaks JSON. Sessions are read from the identity service's
// cookie; writes are rate limited per client address.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.EnableDemoAdmin(appCfg.DemoAdminEnabled)

	// Reload the user on each request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	return newRouter(deps, appCfg, sessionMgr, logger), nil
}

// newRouter mounts every feature over svc. It is separate from BuildHandler
// so tests can supply their own session manager.
func newRouter(deps DBDeps, appCfg AppConfig, sessionMgr *auth.SessionManager, logger *zap.Logger) chi.Router {
	svc := deps.Services
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	if appCfg.WriteRateLimit > 0 {
		limiter := ratelimit.New(appCfg.WriteRateLimit, appCfg.WriteRateWindow)
		r.Use(limitWrites(ratelimit.Middleware(limiter, ratelimit.ByPrincipalOrIP, logger)))
	}

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators.
	var cache healthfeature.CachePinger
	if deps.Redis != nil {
		cache = deps.Redis
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, cache, logger)))

	if svc.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler(svc.Directory, logger))

	targetsHandler := targetsfeature.NewHandler(svc.Targets, svc.Audit, logger)
	r.Mount("/targets", targetsfeature.Routes(targetsHandler, sessionMgr))

	collectionsHandler := collectionsfeature.NewHandler(svc.Ledger, svc.Audit, logger)
	r.Mount("/collections", collectionsfeature.Routes(collectionsHandler, sessionMgr))

	commissionsHandler := commissionsfeature.NewHandler(svc.Commissions, svc.Audit, logger)
	r.Mount("/donations", commissionsfeature.DonationRoutes(commissionsHandler, sessionMgr))
	r.Mount("/commissions", commissionsfeature.Routes(commissionsHandler, sessionMgr))

	leaderboardHandler := leaderboardfeature.NewHandler(svc.Leaderboard, logger)
	r.Mount("/leaderboard", leaderboardfeature.Routes(leaderboardHandler, sessionMgr))

	if svc.AuditEvents != nil {
		auditHandler := auditfeature.NewHandler(svc.AuditEvents, logger)
		r.Mount("/audit", auditfeature.Routes(auditHandler, sessionMgr))
	}

	return r
}

// limitWrites applies limit to every request that can change state.
func limitWrites(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}
