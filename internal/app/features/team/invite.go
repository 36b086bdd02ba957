// internal/app/features/team/invite.go
package team

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/system/authutil"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// MsgAllFieldsRequired is shown when the invite form is incomplete.
const MsgAllFieldsRequired = "All fields are required."

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/new                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	actor := authz.Actor(r)
	if !adminpolicy.CanInvite(actor.Role) {
		h.ErrLog.LogForbidden(w, r, "invite form denied", nil, adminpolicy.MsgNotAllowedInvite, "/users")
		return
	}

	data := inviteData{
		Role:  models.RoleViewer,
		Roles: roleOptions(adminpolicy.AssignableRoles(actor.Role), models.RoleViewer),
	}
	formutil.SetBase(&data.Base, r, "Invite Team Member", "/users")
	templates.Render(w, r, "team_new", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /users/new                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor := authz.Actor(r)
	_, _, actorID, _ := authz.UserCtx(r)

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/users")
		return
	}

	data := inviteData{
		Name:  formutil.Value(r, "name"),
		Email: authutil.NormalizeEmail(formutil.Value(r, "email")),
		Role:  formutil.Value(r, "role"),
	}
	password := r.PostFormValue("password")

	if !adminpolicy.CanInvite(actor.Role) {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "invite", adminpolicy.MsgNotAllowedInvite)
		h.ErrLog.LogForbidden(w, r, "invite denied", nil, adminpolicy.MsgNotAllowedInvite, "/users")
		return
	}
	if err := adminpolicy.CheckInvite(actor, data.Role); err != nil {
		h.reRenderInvite(w, r, actor, data, policyMessage(err))
		return
	}

	switch {
	case data.Name == "" || data.Email == "" || password == "":
		h.reRenderInvite(w, r, actor, data, MsgAllFieldsRequired)
		return
	case !authutil.IsValidEmail(data.Email):
		h.reRenderInvite(w, r, actor, data, authutil.ErrInvalidEmail.Error())
		return
	}
	if err := authutil.ValidatePassword(password); err != nil {
		h.reRenderInvite(w, r, actor, data, err.Error())
		return
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Could not create the account.", "/users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Admins.Create(ctx, models.AdminProfile{
		Name:         data.Name,
		Email:        data.Email,
		Role:         data.Role,
		PasswordHash: hash,
		InvitedBy:    &actorID,
	})
	if err != nil {
		if errors.Is(err, adminusers.ErrDuplicateEmail) {
			h.reRenderInvite(w, r, actor, data, adminusers.ErrDuplicateEmail.Error())
			return
		}
		werr := uierrors.NewTransientWriteError("create admin", err, "")
		h.Log.Error("create admin failed", zap.Error(werr), zap.String("email", data.Email))
		h.reRenderInvite(w, r, actor, data, uierrors.WriteNotice(werr))
		return
	}

	h.AuditLog.AdminInvited(r.Context(), r, actorID, created.ID, created.Role)
	h.Log.Info("team member invited",
		zap.String("admin_id", created.ID.Hex()),
		zap.String("role", created.Role))
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) reRenderInvite(w http.ResponseWriter, r *http.Request, actor adminpolicy.Actor, data inviteData, msg string) {
	data.Roles = roleOptions(adminpolicy.AssignableRoles(actor.Role), data.Role)
	formutil.SetBase(&data.Base, r, "Invite Team Member", "/users")
	data.SetError(msg)
	templates.Render(w, r, "team_new", data)
}
