// internal/app/system/auth/auth.go
package auth

// Terminology: Identifiers
//   - UserID / userID / user_id: the ObjectID hex of an admin_users record
//   - LoginID / loginID: the email address a staff member signs in with
//   - Activity session: the staff_sessions record opened at sign-in

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey            = "is_authenticated"
	userIDKey            = "user_id"
	activitySessionIDKey = "activity_session_id"

	// PassiveHeader marks a request that must not count as user activity
	// (the background heartbeat sets it).
	PassiveHeader = "X-Passive-Request"

	// ExpiredLoginPath is where an idle-expired session is sent.
	ExpiredLoginPath = "/login?expired=1"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Identity state                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// IdentityState is resolved exactly once per request by LoadSessionUser.
type IdentityState int

const (
	// StateLoading means the identity could not be resolved yet, e.g. the
	// profile lookup failed transiently. Guards render a loading page.
	StateLoading IdentityState = iota
	// StateAuthenticated means an active staff profile is in context.
	StateAuthenticated
	// StateUnauthenticated means no usable identity.
	StateUnauthenticated
)

func (s IdentityState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "loading"
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what LoadSessionUser injects into r.Context().
type SessionUser struct {
	ID           string
	Name         string
	LoginID      string
	Role         string
	IsSuperAdmin bool
}

// UserFetcher resolves a user id from the cookie into a fresh SessionUser.
// It returns (nil, nil) when the id maps to no usable account (unknown,
// inactive or unrecognized role); the session is then cleared. A non-nil
// error is treated as transient and leaves the request in StateLoading.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

// IdleTracker is the session watchdog as seen from the session layer.
type IdleTracker interface {
	// Touch records user activity for an activity session, starting to
	// track it if needed.
	Touch(sessionID string)
	// Expired reports whether the session was force-expired for
	// inactivity. Expired sessions stay expired; Touch does not revive them.
	Expired(sessionID string) bool
}

// SessionLedger is the persisted staff session record. Unlike the
// watchdog's memory it survives restarts, so a session closed for
// inactivity stays closed.
type SessionLedger interface {
	// OpenState reports whether the session is still open and, when it
	// is not, whether it was closed for inactivity. Unknown ids are closed.
	OpenState(ctx context.Context, sessionID string) (open, inactive bool, err error)
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	identityKey    ctxKey = "identity"
)

type identity struct {
	state     IdentityState
	sessionID string
	expired   bool
}

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// State returns the identity state of the request. Requests that never
// passed through LoadSessionUser are unauthenticated unless a user was
// injected directly.
func State(r *http.Request) IdentityState {
	if id, ok := r.Context().Value(identityKey).(identity); ok {
		return id.state
	}
	if _, ok := CurrentUser(r); ok {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// ActivitySessionID returns the staff session id of the signed-in user.
func ActivitySessionID(r *http.Request) string {
	id, _ := r.Context().Value(identityKey).(identity)
	return id.sessionID
}

// JustExpired reports whether this request found its session idle-expired.
func JustExpired(r *http.Request) bool {
	id, _ := r.Context().Value(identityKey).(identity)
	return id.expired
}

// WithTestUser injects an authenticated user, as LoadSessionUser would.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	ctx := context.WithValue(r.Context(), currentUserKey, u)
	ctx = context.WithValue(ctx, identityKey, identity{state: StateAuthenticated})
	return r.WithContext(ctx)
}

// WithTestSession injects an authenticated user bound to an activity
// session id.
func WithTestSession(r *http.Request, u *SessionUser, sessionID string) *http.Request {
	ctx := context.WithValue(r.Context(), currentUserKey, u)
	ctx = context.WithValue(ctx, identityKey, identity{state: StateAuthenticated, sessionID: sessionID})
	return r.WithContext(ctx)
}

// WithTestState injects a bare identity state.
func WithTestState(r *http.Request, s IdentityState) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, identity{state: s}))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the per-request identity
// resolution.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	fetcher UserFetcher
	idle    IdleTracker
	ledger  SessionLedger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure with SameSite=None; in local dev over http they are
// Lax so browsers accept them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "mansahub-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher makes LoadSessionUser resolve the profile on each request,
// so role changes and deactivations apply on the next request.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// SetIdleTracker connects the session watchdog.
func (sm *SessionManager) SetIdleTracker(t IdleTracker) { sm.idle = t }

// SetSessionLedger makes LoadSessionUser reject cookies whose staff
// session has been closed.
func (sm *SessionManager) SetSessionLedger(l SessionLedger) { sm.ledger = l }

// ledgerState looks the session up in the ledger. Without a ledger or an
// activity session id every session counts as open.
func (sm *SessionManager) ledgerState(ctx context.Context, sessionID string) (open, inactive bool, err error) {
	if sm.ledger == nil || sessionID == "" {
		return true, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	return sm.ledger.OpenState(ctx, sessionID)
}

// GetSession returns the session, replacing cookies that no longer decode
// (e.g. after a session key rotation) with a fresh empty session.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			sm.log.Debug("discarding undecodable session cookie", zap.Error(err))
			fresh := sessions.NewSession(sm.store, sm.name)
			opts := *sm.store.Options
			fresh.Options = &opts
			fresh.IsNew = true
			return fresh, nil
		}
		return sess, err
	}
	return sess, nil
}

// SignIn marks the session authenticated for userID and records the
// activity session id.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID, activitySessionID string) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID
	sess.Values[activitySessionIDKey] = activitySessionID
	return sess.Save(r, w)
}

// SignOut clears the session cookie and returns the activity session id
// it carried, so the caller can close it.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := sm.GetSession(r)
	if err != nil {
		return "", err
	}
	sid := getString(sess, activitySessionIDKey)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sid, sess.Save(r, w)
}

func (sm *SessionManager) clear(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("failed to clear session cookie", zap.Error(err))
	}
}

// LoadSessionUser resolves the identity state and, when authenticated,
// injects the SessionUser into the context.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity{state: StateUnauthenticated}
		var user *SessionUser

		sess, err := sm.GetSession(r)
		if err != nil {
			sm.log.Warn("session load failed", zap.Error(err))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
			return
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			userID := getString(sess, userIDKey)
			id.sessionID = getString(sess, activitySessionIDKey)

			switch {
			case sm.idle != nil && id.sessionID != "" && sm.idle.Expired(id.sessionID):
				id.expired = true
				sm.clear(w, r, sess)
			case sm.fetcher == nil:
				sm.log.Error("no user fetcher configured; treating session as signed out")
				sm.clear(w, r, sess)
			default:
				open, inactive, lerr := sm.ledgerState(r.Context(), id.sessionID)
				if lerr != nil {
					sm.log.Warn("session ledger lookup failed; request left loading",
						zap.String("session_id", id.sessionID), zap.Error(lerr))
					id.state = StateLoading
					break
				}
				if !open {
					sm.log.Info("staff session already closed; clearing cookie",
						zap.String("session_id", id.sessionID), zap.Bool("inactive", inactive))
					id.expired = inactive
					sm.clear(w, r, sess)
					break
				}

				u, ferr := sm.fetcher.FetchUser(r.Context(), userID)
				switch {
				case ferr != nil:
					sm.log.Warn("identity resolution failed; request left loading",
						zap.String("user_id", userID), zap.Error(ferr))
					id.state = StateLoading
				case u == nil:
					sm.log.Info("session user no longer authorized; clearing session",
						zap.String("user_id", userID))
					sm.clear(w, r, sess)
				default:
					user = u
					id.state = StateAuthenticated
					if sm.idle != nil && id.sessionID != "" && r.Header.Get(PassiveHeader) == "" {
						sm.idle.Touch(id.sessionID)
					}
				}
			}
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		if user != nil {
			ctx = context.WithValue(ctx, currentUserKey, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn renders protected routes only for StateAuthenticated.
//   - Loading: 503 loading page with Retry-After (API: 503 text)
//   - Unauthenticated: HTMX gets HX-Redirect, HTML a 303 to
//     /login?return=..., API callers a 401
//
// Idle-expired sessions are sent to /login?expired=1 instead.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch State(r) {
		case StateAuthenticated:
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		case StateLoading:
			renderLoading(w, r)
		default:
			redirectToLogin(w, r)
		}
	})
}

// RequireAnonymous keeps signed-in staff off anonymous-only pages such as
// /login by sending them to the dashboard.
func (sm *SessionManager) RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch State(r) {
		case StateAuthenticated:
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/")
				w.WriteHeader(http.StatusOK)
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
		case StateLoading:
			renderLoading(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequireRole lets through only users holding one of allowed. Signed-in
// users without the role go to /forbidden (API: 403).
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch State(r) {
			case StateLoading:
				renderLoading(w, r)
				return
			case StateUnauthenticated:
				redirectToLogin(w, r)
				return
			}

			u, ok := CurrentUser(r)
			if !ok {
				redirectToLogin(w, r)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/forbidden")
					w.WriteHeader(http.StatusForbidden)
					return
				}
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	dest := "/login?return=" + url.QueryEscape(currentURI(r))
	if JustExpired(r) {
		dest = ExpiredLoginPath
		w.Header().Set("X-Session-Expired", "1")
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

const loadingPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="2">
<title>Loading…</title>
</head>
<body style="font-family:system-ui,sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;color:#6b7280">
<p>Checking your session…</p>
</body>
</html>`

func renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "2")
	w.Header().Set("Cache-Control", "no-store")
	if !wantsHTML(r) {
		http.Error(w, "identity unavailable, retry shortly", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(loadingPage))
}

// helpers

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
