package adminusers_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/mansahub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	p, err := store.Create(ctx, models.AdminProfile{Name: " Nimali Perera ", Email: "Nimali@Clinic.LK", Role: "Editor"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Email != "nimali@clinic.lk" {
		t.Errorf("expected normalized email, got %q", p.Email)
	}
	if p.Status != models.StatusActive {
		t.Errorf("expected active status, got %q", p.Status)
	}

	got, err := store.GetByEmail(ctx, "NIMALI@clinic.lk")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != p.ID || got.Role != models.RoleEditor {
		t.Errorf("unexpected profile %+v", got)
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	if _, err := store.Create(ctx, models.AdminProfile{Name: "A", Email: "a@mansa.lk", Role: "viewer"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.AdminProfile{Name: "B", Email: "A@mansa.lk", Role: "viewer"})
	if !errors.Is(err, adminusers.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_Create_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.AdminProfile{Name: "A", Email: "a@mansa.lk", Role: "owner"}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStore_UpdateProfile_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateAdmin(ctx, "Kamal", "kamal@mansa.lk", models.RoleViewer)

	if err := store.UpdateProfile(ctx, p.ID, adminusers.Update{Name: "Kamal Silva", Role: models.RoleEditor}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Kamal Silva" || got.Role != models.RoleEditor {
		t.Errorf("expected updated name and role, got %q / %q", got.Name, got.Role)
	}
	if got.Email != "kamal@mansa.lk" {
		t.Errorf("expected email unchanged, got %q", got.Email)
	}
}

func TestStore_UpdateProfile_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.UpdateProfile(ctx, primitive.NewObjectID(), adminusers.Update{Name: "x", Role: "viewer"})
	if !errors.Is(err, adminusers.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Deactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateAdmin(ctx, "Ruwan", "ruwan@mansa.lk", models.RoleEditor)
	if err := store.Deactivate(ctx, p.ID, models.StatusInactive, models.RoleViewer); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.IsActive() || got.Role != models.RoleViewer {
		t.Errorf("expected inactive viewer, got %s/%s", got.Status, got.Role)
	}
}

func TestStore_List_HidesPasswordHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateAdmin(ctx, "Zara", "z@mansa.lk", models.RoleViewer)
	fx.CreateAdmin(ctx, "Amal", "a@mansa.lk", models.RoleAdmin)

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Amal" {
		t.Fatalf("expected two profiles sorted by name, got %+v", list)
	}
	for _, p := range list {
		if p.PasswordHash != "" {
			t.Error("expected password hash to be projected out")
		}
	}
}

func TestStore_EnsureSuperAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := adminusers.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.EnsureSuperAdmin(ctx, "root@mansa.lk", "hash")
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	got, _ := store.GetByEmail(ctx, "root@mansa.lk")
	if got.Role != models.RoleSuperAdmin || !got.IsActive() {
		t.Errorf("expected active superadmin, got %s/%s", got.Role, got.Status)
	}

	p := fx.CreateAdmin(ctx, "Existing", "existing@mansa.lk", models.RoleViewer)
	created, err = store.EnsureSuperAdmin(ctx, "existing@mansa.lk", "")
	if err != nil || created {
		t.Fatalf("expected promotion, got created=%v err=%v", created, err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.Role != models.RoleSuperAdmin {
		t.Errorf("expected promotion to superadmin, got %q", got.Role)
	}
}
