// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/mansahub/internal/app/system/kv"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	// Redis is nil when redis_url is blank.
	Redis *kv.Clients
}
