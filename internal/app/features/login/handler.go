// internal/app/features/login/handler.go
package login

// Terminology: Identifiers
//   - AdminID / adminID: the ObjectID of an admin_users record
//   - Activity session: the staff_sessions record opened here at sign-in

import (
	"context"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/mailer"
	"github.com/dalemusser/mansahub/internal/app/system/ratelimit"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExpiredNotice is shown on /login?expired=1.
const ExpiredNotice = "Session Expired — You have been logged out due to inactivity."

// ActivityTracker is the watchdog as seen from sign-in.
type ActivityTracker interface {
	Touch(sessionID string)
}

// AdminWriter is the part of the admin store the login flows write.
type AdminWriter interface {
	TouchLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type Handler struct {
	Auth       *Authenticator
	Admins     AdminWriter
	Sessions   *sessions.Store
	Resets     ResetTokens
	Mailer     mailer.Sender
	SessionMgr *auth.SessionManager
	Tracker    ActivityTracker
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	SiteName      string
	BaseURL       string
	GoogleEnabled bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	formutil.Base
	Email         string
	ReturnURL     string
	GoogleEnabled bool
	Notice        string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	data := loginFormData{
		ReturnURL:     query.Get(r, "return"),
		GoogleEnabled: h.GoogleEnabled,
		Notice:        loginNotice(r),
	}
	formutil.SetBase(&data.Base, r, "Sign in", "/")
	if msg := query.Get(r, "error"); msg != "" {
		data.SetError(googleErrorMessage(msg))
	}
	templates.Render(w, r, "login", data)
}

func loginNotice(r *http.Request) string {
	switch {
	case query.Get(r, "expired") == "1":
		return ExpiredNotice
	case query.Get(r, "reset") == "1":
		return "Your password has been updated. Please sign in."
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := formutil.Value(r, "email")
	password := r.PostFormValue("password")
	ret := formutil.Value(r, "return")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login lookup")
	defer cancel()

	p, err := h.Auth.SignIn(ctx, r, email, password)
	if err != nil {
		ae, ok := auth.AsAuthError(err)
		if !ok {
			h.ErrLog.LogServerError(w, r, "login lookup failed", err, "A server error occurred. Please try again.", "/login")
			return
		}
		h.auditFailure(ctx, r, ae, p, email)
		if ae.Kind == auth.Disabled && p != nil {
			h.revokeSessions(w, r, p.ID)
		}
		h.renderFormWithError(w, r, ae.Error(), email, ret)
		return
	}

	if err := h.startSession(w, r, p, sessions.CreatedByPassword); err != nil {
		h.Log.Error("start session failed", zap.Error(err), zap.String("admin_id", p.ID.Hex()))
		h.renderFormWithError(w, r, "Unable to create session. Please try again.", email, ret)
		return
	}

	h.AuditLog.LoginSuccess(r.Context(), r, p.ID, models.AuthMethodPassword, p.Email)
	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/"), http.StatusSeeOther)
}

// startSession opens a staff session, stores it in the cookie and arms
// the idle watchdog for it.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, p *models.AdminProfile, createdBy string) error {
	return StartSession(w, r, StartDeps{
		Sessions:   h.Sessions,
		SessionMgr: h.SessionMgr,
		Tracker:    h.Tracker,
		Admins:     h.Admins,
		Log:        h.Log,
	}, p, createdBy)
}

// StartDeps is what StartSession needs; shared with Google sign-in.
type StartDeps struct {
	Sessions   *sessions.Store
	SessionMgr *auth.SessionManager
	Tracker    ActivityTracker
	Admins     AdminWriter
	Log        *zap.Logger
}

// StartSession creates the staff session record and signs the cookie in.
// A failed ledger write is logged and the sign-in proceeds without an
// activity session.
func StartSession(w http.ResponseWriter, r *http.Request, d StartDeps, p *models.AdminProfile, createdBy string) error {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), d.Log, "open staff session")
	defer cancel()

	sid := ""
	if d.Sessions != nil {
		s, err := d.Sessions.Create(ctx, p.ID, ratelimit.ClientIP(r), r.UserAgent(), createdBy)
		if err != nil {
			d.Log.Warn("failed to create staff session", zap.Error(err), zap.String("admin_id", p.ID.Hex()))
		} else {
			sid = s.ID.Hex()
		}
	}

	if err := d.SessionMgr.SignIn(w, r, p.ID.Hex(), sid); err != nil {
		return err
	}

	if sid != "" && d.Tracker != nil {
		d.Tracker.Touch(sid)
	}
	if d.Admins != nil {
		if err := d.Admins.TouchLastActive(ctx, p.ID, time.Now().UTC()); err != nil {
			d.Log.Warn("failed to update last_active", zap.Error(err), zap.String("admin_id", p.ID.Hex()))
		}
	}
	return nil
}

func (h *Handler) auditFailure(ctx context.Context, r *http.Request, ae *auth.AuthError, p *models.AdminProfile, email string) {
	switch ae.Kind {
	case auth.RateLimited:
		h.AuditLog.LoginFailedRateLimit(ctx, r, email, ae.Error())
	case auth.Disabled:
		h.AuditLog.LoginFailedDisabled(ctx, r, p.ID, email)
	case auth.InvalidCredentials:
		if p != nil {
			h.AuditLog.LoginFailedWrongPassword(ctx, r, p.ID, email)
			return
		}
		h.AuditLog.LoginFailedUnknown(ctx, r, email)
	default:
		h.AuditLog.LoginFailedUnknown(ctx, r, email)
	}
}

// revokeSessions clears the cookie and closes every open staff session of
// a deactivated profile.
func (h *Handler) revokeSessions(w http.ResponseWriter, r *http.Request, adminID primitive.ObjectID) {
	if _, err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("failed to clear session for disabled account", zap.Error(err))
	}
	if h.Sessions == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "revoke staff sessions")
	defer cancel()
	if _, err := h.Sessions.CloseAllForAdmin(ctx, adminID, sessions.EndRevoked); err != nil {
		h.Log.Warn("failed to close sessions for disabled account", zap.Error(err),
			zap.String("admin_id", adminID.Hex()))
	}
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, email, ret string) {
	data := loginFormData{
		Email:         email,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	}
	formutil.SetBase(&data.Base, r, "Sign in", "/")
	data.SetError(msg)
	templates.Render(w, r, "login", data)
}

func googleErrorMessage(code string) string {
	switch strings.TrimSpace(code) {
	case "no_account":
		return auth.MsgUnknownAccount
	case "disabled":
		return auth.MsgDisabled
	}
	return "Google sign-in failed. Please try again."
}
