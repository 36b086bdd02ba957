// internal/app/features/appusers/handler.go
package appusers

import (
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves the mothers registry under /app-users.
type Handler struct {
	Users    *appuserstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
	// Loc is the zone dates are shown and exported in.
	Loc *time.Location

	now func() time.Time
}

func NewHandler(users *appuserstore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Users:    users,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
		Loc:      loc,
		now:      time.Now,
	}
}
