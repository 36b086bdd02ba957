// internal/app/features/logout/handler.go
package logout

import (
	"context"
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// SessionCloser ends staff sessions in the ledger.
type SessionCloser interface {
	CloseHex(ctx context.Context, sessionID, reason string) (bool, error)
}

// Forgetter drops a session from the idle watchdog.
type Forgetter interface {
	Forget(sessionID string)
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Sessions   SessionCloser
	Tracker    Forgetter
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, sess SessionCloser, tracker Forgetter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Sessions:   sess,
		Tracker:    tracker,
		AuditLog:   audit,
	}
}

// ServeLogout handles POST /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	var adminID string
	if u, ok := auth.CurrentUser(r); ok {
		adminID = u.ID
	}

	sid, err := h.SessionMgr.SignOut(w, r)
	if err != nil {
		// The cookie could not be read; it is still overwritten below.
		h.Log.Warn("session decode failed during logout", zap.Error(err))
	}
	if sid == "" {
		sid = auth.ActivitySessionID(r)
	}

	if sid != "" {
		if h.Tracker != nil {
			h.Tracker.Forget(sid)
		}
		if h.Sessions != nil {
			ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "close staff session")
			if _, err := h.Sessions.CloseHex(ctx, sid, sessions.EndLogout); err != nil {
				h.Log.Warn("failed to close staff session", zap.Error(err), zap.String("session_id", sid))
			}
			cancel()
		}
	}

	h.AuditLog.Logout(r.Context(), r, adminID)

	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
