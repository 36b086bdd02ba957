// internal/app/features/settings/handler.go
package settings

import (
	"context"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ConfigStore reads and writes the app_config "general" document.
type ConfigStore interface {
	Get(ctx context.Context) (models.AppConfig, error)
	Save(ctx context.Context, cfg models.AppConfig, byID primitive.ObjectID, byName string) (models.AppConfig, error)
}

// Notifier is told about a config this instance just saved so the
// session watchdog and other instances pick it up.
type Notifier interface {
	Notify(ctx context.Context, cfg models.AppConfig)
}

// Handler owns the settings page.
type Handler struct {
	Config   ConfigStore
	Watcher  Notifier
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	now func() time.Time
}

func NewHandler(cfg ConfigStore, watcher Notifier, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Config:   cfg,
		Watcher:  watcher,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
		now:      time.Now,
	}
}
