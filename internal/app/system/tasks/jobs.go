// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredStateCleaner removes OAuth state tokens past their expiry.
type ExpiredStateCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// It backs up the TTL index, whose monitor may lag by a minute or more.
func OAuthStateCleanupJob(states ExpiredStateCleaner, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			count, err := states.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}
