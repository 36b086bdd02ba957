// internal/app/features/team/edit.go
package team

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// load fetches the target of an edit or deactivate. It writes the error
// response itself and returns false when the request cannot continue.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.AdminProfile, bool) {
	id, ok := targetID(r)
	if !ok {
		h.ErrLog.LogNotFound(w, r, "bad admin id", nil, "Team member not found.", "/users")
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Admins.GetByID(ctx, id)
	switch {
	case errors.Is(err, adminusers.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, "admin not found", err, "Team member not found.", "/users")
		return nil, false
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load admin failed", err, "Could not load the team member.", "/users")
		return nil, false
	}
	return p, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/{id}/edit                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	actor := authz.Actor(r)
	if err := adminpolicy.CheckEdit(actor, adminpolicy.Target{ID: p.ID.Hex(), Role: p.Role}, p.Role); err != nil {
		h.ErrLog.LogForbidden(w, r, "edit form denied", err, policyMessage(err), "/users")
		return
	}

	data := editData{ID: p.ID.Hex(), Name: p.Name, Email: p.Email, Role: p.Role}
	h.renderEdit(w, r, actor, p, data, "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /users/{id}/edit                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleEdit saves name and role. The email is shown read-only and never
// written.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/users")
		return
	}

	actor := authz.Actor(r)
	_, _, actorID, _ := authz.UserCtx(r)
	target := adminpolicy.Target{ID: p.ID.Hex(), Role: p.Role}
	data := editData{
		ID:    p.ID.Hex(),
		Name:  formutil.Value(r, "name"),
		Email: p.Email,
		Role:  strings.ToLower(formutil.Value(r, "role")),
	}

	if err := adminpolicy.CheckEdit(actor, target, data.Role); err != nil {
		if !adminpolicy.CanManageTarget(actor.Role, p.Role) {
			h.AuditLog.AccessDenied(r.Context(), r, actorID, "edit admin", policyMessage(err))
			h.ErrLog.LogForbidden(w, r, "edit denied", err, policyMessage(err), "/users")
			return
		}
		h.renderEdit(w, r, actor, p, data, policyMessage(err))
		return
	}
	if data.Name == "" {
		h.renderEdit(w, r, actor, p, data, "Name is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Admins.UpdateProfile(ctx, p.ID, adminusers.Update{Name: data.Name, Role: data.Role}); err != nil {
		werr := uierrors.NewTransientWriteError("update admin", err, "")
		h.Log.Error("update admin failed", zap.Error(werr), zap.String("admin_id", p.ID.Hex()))
		h.renderEdit(w, r, actor, p, data, uierrors.WriteNotice(werr))
		return
	}

	h.AuditLog.AdminUpdated(r.Context(), r, actorID, p.ID, changedFields(p, data))
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func changedFields(p *models.AdminProfile, data editData) string {
	var fields []string
	if p.Name != data.Name {
		fields = append(fields, "name")
	}
	if p.Role != data.Role {
		fields = append(fields, "role")
	}
	return strings.Join(fields, ",")
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, actor adminpolicy.Actor, p *models.AdminProfile, data editData, msg string) {
	// The current role stays selectable even when the actor could not
	// grant it, so a name-only edit round-trips.
	roles := adminpolicy.AssignableRoles(actor.Role)
	if !contains(roles, p.Role) {
		roles = append([]string{p.Role}, roles...)
	}
	data.Roles = roleOptions(roles, data.Role)
	formutil.SetBase(&data.Base, r, "Edit Team Member", "/users")
	if msg != "" {
		data.SetError(msg)
	}
	templates.Render(w, r, "team_edit", data)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /users/{id}/deactivate                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeactivate flips the profile to inactive viewer and closes any
// session it still holds. Profiles are never deleted.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	actor := authz.Actor(r)
	_, _, actorID, _ := authz.UserCtx(r)

	if err := adminpolicy.CheckDeactivate(actor, adminpolicy.Target{ID: p.ID.Hex(), Role: p.Role}); err != nil {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "deactivate admin", policyMessage(err))
		h.ErrLog.LogForbidden(w, r, "deactivate denied", err, policyMessage(err), "/users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	state := adminpolicy.DeactivatedState()
	if err := h.Admins.Deactivate(ctx, p.ID, state.Status, state.Role); err != nil {
		h.ErrLog.LogServerError(w, r, "deactivate admin failed", err, uierrors.DefaultWriteNotice, "/users")
		return
	}
	h.revoke(ctx, p.ID)

	h.AuditLog.AdminDeactivated(r.Context(), r, actorID, p.ID)
	h.Log.Info("team member deactivated", zap.String("admin_id", p.ID.Hex()))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/users")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) revoke(ctx context.Context, id primitive.ObjectID) {
	if h.Sessions == nil {
		return
	}
	n, err := h.Sessions.CloseAllForAdmin(ctx, id, sessions.EndRevoked)
	if err != nil {
		h.Log.Warn("close sessions of deactivated admin failed", zap.Error(err), zap.String("admin_id", id.Hex()))
		return
	}
	if n > 0 {
		h.Log.Info("closed sessions of deactivated admin", zap.Int64("count", n), zap.String("admin_id", id.Hex()))
	}
}
