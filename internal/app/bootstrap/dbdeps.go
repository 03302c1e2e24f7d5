// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Services is allocated by ConnectDB and filled in by Startup; the hooks
// receive DBDeps by value, so the pointer is how BuildHandler and Shutdown
// see what Startup built.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when no redis_addr is configured.
	Redis *redis.Client

	Services *Services
}
