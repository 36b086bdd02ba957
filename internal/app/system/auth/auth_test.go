package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/watchdog"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("protected content"))
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/login") {
		t.Errorf("expected redirect to /login, got %q", location)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	hxRedirect := rec.Header().Get("HX-Redirect")
	if !strings.HasPrefix(hxRedirect, "/login") {
		t.Errorf("expected HX-Redirect to /login, got %q", hxRedirect)
	}
}

func TestRequireRole_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/login") {
		t.Errorf("expected redirect to /login, got %q", location)
	}
}

func TestRequireRole_WrongRole_RedirectsToForbidden(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Create a request with a member user in context
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html")

	// Inject a user with "viewer" role into context
	req = withTestUser(req, "viewer")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	location := rec.Header().Get("Location")
	if location != "/forbidden" {
		t.Errorf("expected redirect to /forbidden, got %q", location)
	}
}

func TestRequireRole_WrongRole_API_Returns403(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/admin", nil)
	req.Header.Set("Accept", "application/json")
	req = withTestUser(req, "viewer")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestRequireRole_CorrectRole_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/admin", nil)
	req = withTestUser(req, "admin")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin", "editor")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		role     string
		expected int
	}{
		{"admin", http.StatusOK},
		{"editor", http.StatusOK},
		{"viewer", http.StatusSeeOther},     // redirect to forbidden
		{"superadmin", http.StatusSeeOther}, // redirect to forbidden
	}

	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/content", nil)
			req.Header.Set("Accept", "text/html")
			req = withTestUser(req, tc.role)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("role %q: expected status %d, got %d", tc.role, tc.expected, rec.Code)
			}
		})
	}
}

func TestRequireRole_CaseInsensitive(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Test with uppercase role
	req := httptest.NewRequest("GET", "/admin", nil)
	req = withTestUser(req, "ADMIN")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for uppercase role, got %d", http.StatusOK, rec.Code)
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)

	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}

func TestCurrentUser_WithUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = withTestUser(req, "admin")

	user, ok := auth.CurrentUser(req)

	if !ok {
		t.Error("expected ok to be true when user in context")
	}
	if user == nil {
		t.Fatal("expected user to not be nil")
	}
	if user.Role != "admin" {
		t.Errorf("expected role 'admin', got %q", user.Role)
	}
}

// withTestUser injects a SessionUser into the request context for testing.
// This simulates what LoadSessionUser middleware does.
func withTestUser(r *http.Request, role string) *http.Request {
	user := &auth.SessionUser{
		ID:      "507f1f77bcf86cd799439011", // Valid ObjectID hex
		Name:    "Test User",
		LoginID: "test@mansa.lk",
		Role:    role,
	}
	return auth.WithTestUser(r, user)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Identity resolution                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type fakeFetcher struct {
	user *auth.SessionUser
	err  error
}

func (f fakeFetcher) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	return f.user, f.err
}

type fakeIdle struct {
	touched []string
	expired map[string]bool
}

func (f *fakeIdle) Touch(sid string) { f.touched = append(f.touched, sid) }

func (f *fakeIdle) Expired(sid string) bool { return f.expired[sid] }

// signedInCookie runs SignIn and returns the resulting cookies.
func signedInCookie(t *testing.T, sm *auth.SessionManager, userID, sid string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	if err := sm.SignIn(rec, req, userID, sid); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	return rec.Result().Cookies()
}

// captureState runs LoadSessionUser and records the resolved state.
func captureState(sm *auth.SessionManager, req *http.Request) (auth.IdentityState, *auth.SessionUser, *httptest.ResponseRecorder) {
	var state auth.IdentityState
	var user *auth.SessionUser
	rec := httptest.NewRecorder()
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state = auth.State(r)
		user, _ = auth.CurrentUser(r)
	})).ServeHTTP(rec, req)
	return state, user, rec
}

func TestLoadSessionUser_NoCookie_Unauthenticated(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{})

	state, user, _ := captureState(sm, httptest.NewRequest("GET", "/", nil))
	if state != auth.StateUnauthenticated {
		t.Errorf("expected unauthenticated, got %v", state)
	}
	if user != nil {
		t.Error("expected no user")
	}
}

func TestLoadSessionUser_ResolvesUser(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: &auth.SessionUser{ID: "u1", Name: "Nimali", Role: "editor"}})
	idle := &fakeIdle{}
	sm.SetIdleTracker(idle)

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	state, user, _ := captureState(sm, req)
	if state != auth.StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", state)
	}
	if user == nil || user.Name != "Nimali" {
		t.Errorf("expected resolved user, got %+v", user)
	}
	if len(idle.touched) != 1 || idle.touched[0] != "s1" {
		t.Errorf("expected activity touch for s1, got %v", idle.touched)
	}
}

func TestLoadSessionUser_PassiveRequestDoesNotTouch(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: &auth.SessionUser{ID: "u1", Role: "viewer"}})
	idle := &fakeIdle{}
	sm.SetIdleTracker(idle)

	req := httptest.NewRequest("POST", "/api/heartbeat", nil)
	req.Header.Set(auth.PassiveHeader, "1")
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	captureState(sm, req)
	if len(idle.touched) != 0 {
		t.Errorf("expected no activity touch, got %v", idle.touched)
	}
}

func TestLoadSessionUser_UnknownProfile_ClearsSession(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: nil})

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	state, _, rec := captureState(sm, req)
	if state != auth.StateUnauthenticated {
		t.Errorf("expected unauthenticated, got %v", state)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected session cookie to be cleared")
	}
}

func TestLoadSessionUser_LookupError_Loading(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{err: errors.New("server selection timeout")})

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	state, user, _ := captureState(sm, req)
	if state != auth.StateLoading {
		t.Errorf("expected loading, got %v", state)
	}
	if user != nil {
		t.Error("expected no user while loading")
	}
}

func TestLoadSessionUser_IdleExpired_RedirectsWithNotice(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: &auth.SessionUser{ID: "u1", Role: "admin"}})
	sm.SetIdleTracker(&fakeIdle{expired: map[string]bool{"s1": true}})

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Accept", "text/html")
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	sm.LoadSessionUser(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler must not run")
	}))).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != auth.ExpiredLoginPath {
		t.Errorf("expected redirect to %q, got %q", auth.ExpiredLoginPath, loc)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func TestRequireSignedIn_Loading_RendersLoadingPage(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler must not run while loading")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "text/html")
	req = auth.WithTestState(req, auth.StateLoading)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(rec.Body.String(), "http-equiv=\"refresh\"") {
		t.Error("expected auto-refresh loading page")
	}
}

func TestRequireSignedIn_Authenticated_NoStore(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := withTestUser(httptest.NewRequest("GET", "/", nil), "viewer")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", rec.Header().Get("Cache-Control"))
	}
}

func TestRequireSignedIn_PreservesReturnPath(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/app-users?q=P123", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	want := "/login?return=%2Fapp-users%3Fq%3DP123"
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("expected %q, got %q", want, loc)
	}
}

func TestRequireAnonymous_Authenticated_RedirectsHome(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireAnonymous(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("login page must not render for a signed-in user")
	}))

	req := withTestUser(httptest.NewRequest("GET", "/login", nil), "editor")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestRequireAnonymous_Unauthenticated_Renders(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.RequireAnonymous(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/login", nil))
	if !called {
		t.Error("expected login page to render")
	}
}

func TestSignOut_ReturnsActivitySession(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range signedInCookie(t, sm, "u1", "s42") {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	sid, err := sm.SignOut(rec, req)
	if err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if sid != "s42" {
		t.Errorf("expected activity session s42, got %q", sid)
	}
}

func TestIdentityState_String(t *testing.T) {
	if auth.StateLoading.String() != "loading" || auth.StateAuthenticated.String() != "authenticated" || auth.StateUnauthenticated.String() != "unauthenticated" {
		t.Error("unexpected state names")
	}
}

type fakeLedger struct {
	mu     sync.Mutex
	closed map[string]bool // session id -> closed for inactivity
	err    error
}

func (f *fakeLedger) OpenState(_ context.Context, sid string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, false, f.err
	}
	inactive, closed := f.closed[sid]
	return !closed, inactive, nil
}

func (f *fakeLedger) close(sid string, inactive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed == nil {
		f.closed = map[string]bool{}
	}
	f.closed[sid] = inactive
}

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestLoadSessionUser_IdleExpiredStaysExpiredAfterWatchdogForgets(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: &auth.SessionUser{ID: "u1", Role: "admin"}})

	clock := &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	ledger := &fakeLedger{}
	expiries := 0
	wd := watchdog.New(func(_ context.Context, sid string, _ time.Duration) {
		expiries++
		ledger.close(sid, true)
	}, zap.NewNop(), watchdog.WithClock(clock))
	sm.SetIdleTracker(wd)
	sm.SetSessionLedger(ledger)

	cookies := signedInCookie(t, sm, "u1", "s1")
	newReq := func() *http.Request {
		req := httptest.NewRequest("GET", "/app-users/export.csv", nil)
		req.Header.Set("Accept", "text/html")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}
	if state, _, _ := captureState(sm, newReq()); state != auth.StateAuthenticated {
		t.Fatalf("expected authenticated after sign-in, got %v", state)
	}

	clock.now = clock.now.Add(31 * time.Minute)
	if n := wd.Check(context.Background()); n != 1 {
		t.Fatalf("expected 1 expiry, got %d", n)
	}

	// Long enough for the watchdog to drop the expired entry, as after a restart.
	clock.now = clock.now.Add(7 * time.Hour)
	wd.Check(context.Background())
	if wd.Expired("s1") {
		t.Fatal("expected the watchdog to have forgotten s1")
	}

	rec := httptest.NewRecorder()
	sm.LoadSessionUser(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler must not run for a closed session")
	}))).ServeHTTP(rec, newReq())

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != auth.ExpiredLoginPath {
		t.Errorf("expected redirect to %q, got %q", auth.ExpiredLoginPath, loc)
	}
	if wd.Tracked() != 0 {
		t.Errorf("expected the closed session not to be tracked again, got %d", wd.Tracked())
	}
	if expiries != 1 {
		t.Errorf("expected a single expiry callback, got %d", expiries)
	}
}

func TestLoadSessionUser_SignedOutSessionCleared(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: &auth.SessionUser{ID: "u1", Role: "viewer"}})
	ledger := &fakeLedger{}
	ledger.close("s1", false)
	sm.SetSessionLedger(ledger)

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	state, _, rec := captureState(sm, req)
	if state != auth.StateUnauthenticated {
		t.Errorf("expected unauthenticated, got %v", state)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected session cookie to be cleared")
	}
}

func TestLoadSessionUser_LedgerError_Loading(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{user: &auth.SessionUser{ID: "u1", Role: "viewer"}})
	sm.SetSessionLedger(&fakeLedger{err: errors.New("server selection timeout")})

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range signedInCookie(t, sm, "u1", "s1") {
		req.AddCookie(c)
	}

	state, user, _ := captureState(sm, req)
	if state != auth.StateLoading {
		t.Errorf("expected loading, got %v", state)
	}
	if user != nil {
		t.Error("expected no user while loading")
	}
}
