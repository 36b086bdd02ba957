package team_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/features/team"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/store/audit"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/mansahub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h        *team.Handler
	fx       *testutil.Fixtures
	admins   *adminusers.Store
	sessions *sessions.Store
	audit    *audit.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	e := &env{
		fx:       testutil.NewFixtures(t, db),
		admins:   adminusers.New(db),
		sessions: sessions.New(db),
		audit:    audit.New(db),
	}
	al := auditlog.New(e.audit, logger, auditlog.Config{Auth: auditlog.ModeDB, Admin: auditlog.ModeDB})
	e.h = team.NewHandler(e.admins, e.sessions, al, uierrors.NewErrorLogger(logger), logger)
	return e
}

// serve runs a handler that may render a template; the template engine
// is not booted in tests.
func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func asUser(p models.AdminProfile) testutil.TestUser {
	return testutil.TestUser{ID: p.ID.Hex(), Name: p.Name, Email: p.Email, Role: p.Role}
}

func TestServeNew_EditorForbidden(t *testing.T) {
	e := newEnv(t)

	for _, u := range []testutil.TestUser{testutil.EditorUser(), testutil.ViewerUser()} {
		rec := serve(e.h.ServeNew, testutil.NewAuthenticatedRequest("GET", "/users/new", u))
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", u.Role, rec.Code)
		}
	}
}

func TestHandleCreate_Success(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := e.fx.CreateAdmin(ctx, "Admin", "admin@mansa.lk", models.RoleAdmin)
	form := url.Values{
		"name":     {"Kamala Silva"},
		"email":    {"  Kamala@Mansa.lk "},
		"password": {"strongpass1"},
		"role":     {models.RoleEditor},
	}
	rec := serve(e.h.HandleCreate, testutil.NewFormRequest("/users/new", form.Encode(), asUser(actor)))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/users" {
		t.Fatalf("expected redirect to /users, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	p, err := e.admins.GetByEmail(ctx, "kamala@mansa.lk")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if p.Role != models.RoleEditor || !p.IsActive() {
		t.Errorf("expected active editor, got %s/%s", p.Role, p.Status)
	}
	if p.InvitedBy == nil || *p.InvitedBy != actor.ID {
		t.Errorf("expected invited_by %s, got %v", actor.ID.Hex(), p.InvitedBy)
	}

	events, _ := e.audit.GetByTarget(ctx, p.ID.Hex(), 10)
	if len(events) != 1 || events[0].EventType != audit.EventAdminInvited {
		t.Errorf("expected one admin_invited event, got %+v", events)
	}
}

func TestHandleCreate_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		actorRole string
		form      url.Values
	}{
		{"short password", models.RoleAdmin, url.Values{"name": {"A"}, "email": {"a@mansa.lk"}, "password": {"12345"}, "role": {"viewer"}}},
		{"missing name", models.RoleAdmin, url.Values{"email": {"a@mansa.lk"}, "password": {"strongpass1"}, "role": {"viewer"}}},
		{"bad email", models.RoleAdmin, url.Values{"name": {"A"}, "email": {"a@mansa"}, "password": {"strongpass1"}, "role": {"viewer"}}},
		{"admin grants superadmin", models.RoleAdmin, url.Values{"name": {"A"}, "email": {"a@mansa.lk"}, "password": {"strongpass1"}, "role": {"superadmin"}}},
		{"invalid role", models.RoleSuperAdmin, url.Values{"name": {"A"}, "email": {"a@mansa.lk"}, "password": {"strongpass1"}, "role": {"owner"}}},
		{"editor invites", models.RoleEditor, url.Values{"name": {"A"}, "email": {"a@mansa.lk"}, "password": {"strongpass1"}, "role": {"viewer"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			actor := e.fx.CreateAdmin(ctx, "Actor", "actor@mansa.lk", tc.actorRole)
			rec := serve(e.h.HandleCreate, testutil.NewFormRequest("/users/new", tc.form.Encode(), asUser(actor)))

			if rec.Code == http.StatusSeeOther {
				t.Fatal("expected the form to be rejected")
			}
			if _, err := e.admins.GetByEmail(ctx, "a@mansa.lk"); !errors.Is(err, adminusers.ErrNotFound) {
				t.Errorf("expected no profile to be created, got err=%v", err)
			}
		})
	}
}

func TestHandleCreate_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := e.fx.CreateAdmin(ctx, "Admin", "admin@mansa.lk", models.RoleAdmin)
	e.fx.CreateAdmin(ctx, "Taken", "taken@mansa.lk", models.RoleViewer)

	form := url.Values{"name": {"Other"}, "email": {"taken@mansa.lk"}, "password": {"strongpass1"}, "role": {"viewer"}}
	rec := serve(e.h.HandleCreate, testutil.NewFormRequest("/users/new", form.Encode(), asUser(actor)))
	if rec.Code == http.StatusSeeOther {
		t.Fatal("expected duplicate email to be rejected")
	}

	all, err := e.admins.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 profiles, got %d", len(all))
	}
}

func TestHandleEdit_RoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := e.fx.CreateAdmin(ctx, "Super", "super@mansa.lk", models.RoleSuperAdmin)
	target := e.fx.CreateAdmin(ctx, "Old Name", "editor@mansa.lk", models.RoleEditor)

	form := url.Values{"name": {"New Name"}, "role": {models.RoleAdmin}, "email": {"hijack@mansa.lk"}}
	req := testutil.NewFormRequest("/users/"+target.ID.Hex()+"/edit", form.Encode(), asUser(actor))
	req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
	rec := serve(e.h.HandleEdit, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	p, err := e.admins.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p.Name != "New Name" || p.Role != models.RoleAdmin {
		t.Errorf("expected New Name/admin, got %s/%s", p.Name, p.Role)
	}
	if p.Email != "editor@mansa.lk" {
		t.Errorf("expected email unchanged, got %q", p.Email)
	}

	events, _ := e.audit.GetByTarget(ctx, target.ID.Hex(), 10)
	if len(events) != 1 || events[0].Details["fields_changed"] != "name,role" {
		t.Errorf("expected admin_updated with name,role, got %+v", events)
	}
}

func TestHandleEdit_AdminCannotManageAdmin(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := e.fx.CreateAdmin(ctx, "Admin", "admin@mansa.lk", models.RoleAdmin)
	target := e.fx.CreateAdmin(ctx, "Peer", "peer@mansa.lk", models.RoleAdmin)

	form := url.Values{"name": {"Renamed"}, "role": {models.RoleViewer}}
	req := testutil.NewFormRequest("/users/x/edit", form.Encode(), asUser(actor))
	req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
	rec := serve(e.h.HandleEdit, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	p, _ := e.admins.GetByID(ctx, target.ID)
	if p.Name != "Peer" || p.Role != models.RoleAdmin {
		t.Errorf("expected target unchanged, got %s/%s", p.Name, p.Role)
	}
}

func TestHandleDeactivate_SelfRejectedForEveryRole(t *testing.T) {
	for _, role := range models.AllRoles {
		t.Run(role, func(t *testing.T) {
			e := newEnv(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			self := e.fx.CreateAdmin(ctx, "Self", "self@mansa.lk", role)
			req := testutil.NewFormRequest("/users/x/deactivate", "", asUser(self))
			req = testutil.WithChiURLParam(req, "id", self.ID.Hex())
			rec := serve(e.h.HandleDeactivate, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", rec.Code)
			}
			p, _ := e.admins.GetByID(ctx, self.ID)
			if !p.IsActive() || p.Role != role {
				t.Errorf("expected profile unchanged, got %s/%s", p.Status, p.Role)
			}
		})
	}
}

func TestHandleDeactivate_ClosesSessions(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := e.fx.CreateAdmin(ctx, "Admin", "admin@mansa.lk", models.RoleAdmin)
	target := e.fx.CreateAdmin(ctx, "Editor", "editor@mansa.lk", models.RoleEditor)
	if _, err := e.sessions.Create(ctx, target.ID, "10.0.0.1", "test", sessions.CreatedByPassword); err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	req := testutil.NewFormRequest("/users/x/deactivate", "", asUser(actor))
	req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
	rec := serve(e.h.HandleDeactivate, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	p, _ := e.admins.GetByID(ctx, target.ID)
	if p.Status != models.StatusInactive || p.Role != models.RoleViewer {
		t.Errorf("expected inactive viewer, got %s/%s", p.Status, p.Role)
	}

	list, err := e.sessions.GetByAdmin(ctx, target.ID, 10)
	if err != nil {
		t.Fatalf("GetByAdmin failed: %v", err)
	}
	for _, s := range list {
		if s.IsOpen() || s.EndReason != sessions.EndRevoked {
			t.Errorf("expected session closed as revoked, got open=%v reason=%q", s.IsOpen(), s.EndReason)
		}
	}
}

func TestHandleDeactivate_HTMX(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := e.fx.CreateAdmin(ctx, "Super", "super@mansa.lk", models.RoleSuperAdmin)
	target := e.fx.CreateAdmin(ctx, "Admin", "admin@mansa.lk", models.RoleAdmin)

	req := testutil.NewFormRequest("/users/x/deactivate", "", asUser(actor))
	req.Header.Set("HX-Request", "true")
	req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
	rec := serve(e.h.HandleDeactivate, req)

	if rec.Header().Get("HX-Redirect") != "/users" {
		t.Errorf("expected HX-Redirect /users, got %q", rec.Header().Get("HX-Redirect"))
	}
}

func TestHandleDeactivate_UnknownID(t *testing.T) {
	e := newEnv(t)
	req := testutil.NewFormRequest("/users/x/deactivate", "", testutil.SuperAdminUser())
	req = testutil.WithChiURLParam(req, "id", strings.Repeat("0", 24))
	rec := serve(e.h.HandleDeactivate, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
