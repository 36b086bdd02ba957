// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/mansahub/internal/app/store/activity"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/store/audit"
	contentstore "github.com/dalemusser/mansahub/internal/app/store/content"
	"github.com/dalemusser/mansahub/internal/app/store/oauthstate"
	"github.com/dalemusser/mansahub/internal/app/store/passwordresets"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/indexes"
	"github.com/dalemusser/mansahub/internal/app/system/kv"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 15 * time.Second

// ConnectDB opens MongoDB and, when configured, Redis.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	redis, err := kv.Connect(ctx, appCfg.RedisURL)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("connect redis: %w", err)
	}
	if redis.Available() {
		logger.Info("connected to Redis")
	} else {
		logger.Info("redis_url not set; using polling and in-memory rate limits")
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Redis:         redis,
	}, nil
}

// EnsureSchema creates the indexes the dashboard relies on. The mobile
// app's collections are only given indexes for the dashboard's own reads.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	stores := map[string]indexes.Indexer{
		"admin_users":     adminusers.New(db),
		"staff_sessions":  sessions.New(db),
		"audit_events":    audit.New(db),
		"password_resets": passwordresets.New(db, appCfg.PasswordResetExpiry),
		"oauth_states":    oauthstate.New(db),
		"users":           appuserstore.New(db),
		"activity":        activity.New(db),
		"app_content":     contentstore.New(db),
	}
	if err := indexes.EnsureAll(ctx, stores, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
