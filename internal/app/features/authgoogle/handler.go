// internal/app/features/authgoogle/handler.go
package authgoogle

// Google sign-in maps a verified Google email onto an existing staff
// profile. It never creates profiles; staff are invited from /users.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/mansahub/internal/app/features/login"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/store/oauthstate"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/authutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateLifetime      = 10 * time.Minute
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Profiles   login.ProfileFinder
	Start      login.StartDeps
	StateStore *oauthstate.Store

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://dash.mansa.lk/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewHandler(
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	profiles login.ProfileFinder,
	start login.StartDeps,
	stateStore *oauthstate.Store,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Profiles:     profiles,
		Start:        start,
		StateStore:   stateStore,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured reports whether client credentials are set.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save oauth state")
	defer cancel()

	if err := h.StateStore.Save(ctx, state, query.Get(r, "return"), time.Now().UTC().Add(stateLifetime)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := query.Get(r, "state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "google callback")
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	gu, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}

	p, err := h.findProfile(ctx, gu)
	switch {
	case errors.Is(err, errNoAccount):
		h.Log.Info("Google sign-in: no staff profile", zap.String("email", gu.Email))
		h.AuditLog.LoginFailedUnknown(ctx, r, gu.Email)
		http.Redirect(w, r, "/login?error=no_account", http.StatusSeeOther)
		return
	case errors.Is(err, errDisabled):
		h.AuditLog.LoginFailedDisabled(ctx, r, p.ID, gu.Email)
		http.Redirect(w, r, "/login?error=disabled", http.StatusSeeOther)
		return
	case err != nil:
		h.Log.Error("failed to look up staff profile", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	if err := login.StartSession(w, r, h.Start, p, sessions.CreatedByGoogle); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("admin_id", p.ID.Hex()))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}

	h.AuditLog.LoginSuccess(r.Context(), r, p.ID, models.AuthMethodGoogle, p.Email)
	h.Log.Info("staff signed in via Google", zap.String("admin_id", p.ID.Hex()))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Profile lookup                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	errNoAccount = errors.New("no staff profile for google account")
	errDisabled  = errors.New("staff profile deactivated")
)

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// findProfile returns the profile for a verified Google email. The
// profile is returned alongside errDisabled so the caller can audit it.
func (h *Handler) findProfile(ctx context.Context, gu *googleUserInfo) (*models.AdminProfile, error) {
	if !gu.EmailVerified || gu.Email == "" {
		return nil, errNoAccount
	}
	p, err := h.Profiles.GetByEmail(ctx, authutil.NormalizeEmail(gu.Email))
	if errors.Is(err, adminusers.ErrNotFound) {
		return nil, errNoAccount
	}
	if err != nil {
		return nil, err
	}
	if !models.IsValidRole(p.Role) {
		return nil, errNoAccount
	}
	if !p.IsActive() {
		return p, errDisabled
	}
	return p, nil
}

// generateState creates a random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
