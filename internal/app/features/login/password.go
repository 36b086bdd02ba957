// internal/app/features/login/password.go
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/store/passwordresets"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/authutil"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/mailer"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Reset flow messages.
const (
	MsgNoUser          = "No user found with this email."
	MsgPasswordsDiffer = "Passwords do not match."
	MsgSendFailed      = "We couldn't send the reset email. Please try again."
)

// ResetTokens is the password_resets store.
type ResetTokens interface {
	Create(ctx context.Context, adminID primitive.ObjectID, email string) (string, error)
	Peek(ctx context.Context, token string) (*passwordresets.Reset, error)
	Consume(ctx context.Context, token string) (*passwordresets.Reset, error)
	Expiry() time.Duration
}

type forgotFormData struct {
	formutil.Base
	Email string
	Sent  bool
}

type resetFormData struct {
	formutil.Base
	Token         string
	Valid         bool
	PasswordRules string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /login/forgot                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeForgot(w http.ResponseWriter, r *http.Request) {
	var data forgotFormData
	formutil.SetBase(&data.Base, r, "Forgot password", "/login")
	templates.Render(w, r, "login_forgot", data)
}

func (h *Handler) HandleForgotPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login/forgot")
		return
	}

	email := authutil.NormalizeEmail(r.PostFormValue("email"))
	data := forgotFormData{Email: email}
	formutil.SetBase(&data.Base, r, "Forgot password", "/login")

	if !authutil.IsValidEmail(email) {
		data.SetError(authutil.ErrInvalidEmail.Error())
		templates.Render(w, r, "login_forgot", data)
		return
	}
	if h.Auth.Limiter != nil {
		if ok, msg := h.Auth.Limiter.Check(r, email); !ok {
			data.SetError(msg)
			templates.Render(w, r, "login_forgot", data)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "password reset request")
	defer cancel()

	p, err := h.Auth.Profiles.GetByEmail(ctx, email)
	if errors.Is(err, adminusers.ErrNotFound) || (err == nil && !p.IsActive()) {
		data.SetError(MsgNoUser)
		templates.Render(w, r, "login_forgot", data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "lookup admin for reset", err, "A server error occurred. Please try again.", "/login/forgot")
		return
	}

	token, err := h.Resets.Create(ctx, p.ID, p.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create reset token", err, "A server error occurred. Please try again.", "/login/forgot")
		return
	}

	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
		SiteName:  h.SiteName,
		Name:      p.Name,
		ResetLink: h.resetLink(token),
		ExpiresIn: formatExpiry(h.Resets.Expiry()),
	})
	msg.To = p.Email
	if err := h.Mailer.Send(ctx, msg); err != nil {
		h.Log.Error("send reset email failed", zap.Error(err), zap.String("admin_id", p.ID.Hex()))
		data.SetError(MsgSendFailed)
		templates.Render(w, r, "login_forgot", data)
		return
	}

	h.AuditLog.PasswordResetRequested(ctx, r, p.ID, p.Email)
	data.Sent = true
	templates.Render(w, r, "login_forgot", data)
}

func (h *Handler) resetLink(token string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/login/reset?token=" + url.QueryEscape(token)
}

// formatExpiry renders d as "N minutes" or "N hours".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /login/reset                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	token := query.Get(r, "token")
	data := resetFormData{Token: token, PasswordRules: authutil.PasswordRules()}
	formutil.SetBase(&data.Base, r, "Choose a new password", "/login")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "peek reset token")
	defer cancel()

	if _, err := h.Resets.Peek(ctx, token); err != nil {
		if !errors.Is(err, passwordresets.ErrInvalidToken) {
			h.Log.Warn("peek reset token failed", zap.Error(err))
		}
		data.SetError(passwordresets.ErrInvalidToken.Error())
	} else {
		data.Valid = true
	}
	templates.Render(w, r, "login_reset", data)
}

func (h *Handler) HandleResetPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login/forgot")
		return
	}

	token := formutil.Value(r, "token")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm")

	data := resetFormData{Token: token, Valid: true, PasswordRules: authutil.PasswordRules()}
	formutil.SetBase(&data.Base, r, "Choose a new password", "/login")

	if err := authutil.ValidatePassword(password); err != nil {
		data.SetError(err.Error())
		templates.Render(w, r, "login_reset", data)
		return
	}
	if password != confirm {
		data.SetError(MsgPasswordsDiffer)
		templates.Render(w, r, "login_reset", data)
		return
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password", err, "A server error occurred. Please try again.", "/login/forgot")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "consume reset token")
	defer cancel()

	reset, err := h.Resets.Consume(ctx, token)
	if err != nil {
		if !errors.Is(err, passwordresets.ErrInvalidToken) {
			h.Log.Warn("consume reset token failed", zap.Error(err))
		}
		data.Valid = false
		data.SetError(passwordresets.ErrInvalidToken.Error())
		templates.Render(w, r, "login_reset", data)
		return
	}

	if err := h.Admins.SetPassword(ctx, reset.AdminID, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "set password", err, "A server error occurred. Please try again.", "/login/forgot")
		return
	}
	if h.Sessions != nil {
		if _, err := h.Sessions.CloseAllForAdmin(ctx, reset.AdminID, sessions.EndRevoked); err != nil {
			h.Log.Warn("failed to close sessions after reset", zap.Error(err))
		}
	}

	h.AuditLog.PasswordResetCompleted(ctx, r, reset.AdminID)
	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}
