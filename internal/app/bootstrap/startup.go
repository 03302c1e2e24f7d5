// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It wires
// the engines over the stores and starts the background reconciler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	*deps.Services = *buildServices(deps.MongoDatabase, deps.Redis, appCfg, logger)

	if r := deps.Services.Reconciler; r != nil {
		r.Start()
	} else {
		logger.Info("target reconciler disabled")
	}
	return nil
}
