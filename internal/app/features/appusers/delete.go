// internal/app/features/appusers/delete.go
package appusers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /app-users/{id}/delete                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDelete soft-deletes a mother. The activity data written by the
// mobile app is kept.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	uid := chi.URLParam(r, "id")

	if err := adminpolicy.CheckDeleteAppUser(authz.Actor(r)); err != nil {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "delete app user", adminpolicy.MsgNotAllowedDelete)
		if r.Header.Get("HX-Request") == "true" {
			h.ErrLog.HTMXLogForbidden(w, r, "delete app user denied", err, adminpolicy.MsgNotAllowedDelete)
			return
		}
		h.ErrLog.LogForbidden(w, r, "delete app user denied", err, adminpolicy.MsgNotAllowedDelete, "/app-users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SoftDelete(ctx, uid, actorID.Hex()); err != nil {
		if errors.Is(err, appuserstore.ErrNotFound) {
			h.ErrLog.LogNotFound(w, r, "app user not found", err, "User not found.", "/app-users")
			return
		}
		if r.Header.Get("HX-Request") == "true" {
			h.ErrLog.HTMXLogServerError(w, r, "delete app user failed", err, "Could not delete user.")
			return
		}
		h.ErrLog.LogServerError(w, r, "delete app user failed", err, "Could not delete user.", "/app-users")
		return
	}

	h.AuditLog.AppUserDeleted(r.Context(), r, actorID, uid)
	h.Log.Info("app user deleted", zap.String("uid", uid), zap.String("by", actorID.Hex()))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/app-users?done=deleted")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/app-users?done=deleted", http.StatusSeeOther)
}
