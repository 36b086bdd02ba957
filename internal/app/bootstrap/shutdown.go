// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background loops, then closes Redis and MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if s := svc; s != nil {
		s.cancel()
		s.cleanup.Stop()
		s.limiter.Stop()
		s.wg.Wait()
		logger.Info("background workers stopped")
	}

	if err := deps.Redis.Close(); err != nil {
		logger.Warn("Redis close failed", zap.Error(err))
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
