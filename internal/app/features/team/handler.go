// internal/app/features/team/handler.go
package team

import (
	"context"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SessionRevoker closes every open session of a staff member.
type SessionRevoker interface {
	CloseAllForAdmin(ctx context.Context, adminID primitive.ObjectID, reason string) (int64, error)
}

// Handler serves the admin team pages under /users.
type Handler struct {
	Admins   *adminusers.Store
	Sessions SessionRevoker
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	now func() time.Time
}

func NewHandler(admins *adminusers.Store, sessions SessionRevoker, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Admins:   admins,
		Sessions: sessions,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
		now:      time.Now,
	}
}
