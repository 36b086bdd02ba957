package logout_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/mansahub/internal/app/features/logout"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"go.uber.org/zap"
)

type fakeCloser struct {
	closed  []string
	reasons []string
}

func (f *fakeCloser) CloseHex(_ context.Context, sid, reason string) (bool, error) {
	f.closed = append(f.closed, sid)
	f.reasons = append(f.reasons, reason)
	return true, nil
}

type fakeForgetter struct{ forgotten []string }

func (f *fakeForgetter) Forget(sid string) { f.forgotten = append(f.forgotten, sid) }

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

// signedInCookies signs a fresh session in and returns its cookies.
func signedInCookies(t *testing.T, sm *auth.SessionManager, userID, sid string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), userID, sid); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	return rec.Result().Cookies()
}

func TestServeLogout_ClosesStaffSession(t *testing.T) {
	sm := newSessionManager(t)
	closer := &fakeCloser{}
	tracker := &fakeForgetter{}
	h := logout.NewHandler(sm, closer, tracker, nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range signedInCookies(t, sm, "admin-1", "sess-1") {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeLogout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
	if len(closer.closed) != 1 || closer.closed[0] != "sess-1" {
		t.Errorf("expected sess-1 closed, got %v", closer.closed)
	}
	if closer.reasons[0] != sessions.EndLogout {
		t.Errorf("expected reason %q, got %q", sessions.EndLogout, closer.reasons[0])
	}
	if len(tracker.forgotten) != 1 || tracker.forgotten[0] != "sess-1" {
		t.Errorf("expected watchdog to forget sess-1, got %v", tracker.forgotten)
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge != -1 {
			t.Errorf("expected cookie deletion (MaxAge -1), got %d", c.MaxAge)
		}
	}
}

func TestServeLogout_WithoutSession(t *testing.T) {
	closer := &fakeCloser{}
	h := logout.NewHandler(newSessionManager(t), closer, &fakeForgetter{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeLogout(rec, httptest.NewRequest("POST", "/logout", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if len(closer.closed) != 0 {
		t.Errorf("expected nothing closed, got %v", closer.closed)
	}
}

func TestServeLogout_HTMX_ReturnsHXRedirect(t *testing.T) {
	h := logout.NewHandler(newSessionManager(t), nil, nil, nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeLogout(rec, req)

	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("expected HX-Redirect /login, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for HTMX, got %d", http.StatusOK, rec.Code)
	}
}
