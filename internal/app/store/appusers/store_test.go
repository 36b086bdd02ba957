package appusers_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/mansahub/internal/testutil"
)

func TestList_NewestFirstWithProfiles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	fx.CreateAppUser(ctx, "u1", "P100", "Colombo", base)
	fx.CreateAppUser(ctx, "u2", "P200", "Kandy", base.Add(time.Hour))
	fx.CreateAppUser(ctx, "u3", "P300", "Galle", base.Add(2*time.Hour))

	rows, err := appusers.New(db).List(ctx, appusers.ListOptions{Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ID != "u3" || rows[2].ID != "u1" {
		t.Errorf("expected newest first, got %s..%s", rows[0].ID, rows[2].ID)
	}
	if rows[1].Profile.MOHArea != "Kandy" {
		t.Errorf("expected merged profile MOH area Kandy, got %q", rows[1].Profile.MOHArea)
	}
}

func TestList_LimitAndSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	store := appusers.New(db)

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	fx.CreateAppUser(ctx, "u1", "P123", "Colombo", base)
	fx.CreateAppUser(ctx, "u2", "Q456", "Kandy North", base.Add(time.Minute))
	fx.CreateAppUser(ctx, "u3", "R789", "Galle", base.Add(2*time.Minute))

	rows, err := store.List(ctx, appusers.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected limit 2, got %d", len(rows))
	}

	rows, err = store.List(ctx, appusers.ListOptions{Limit: 2, Skip: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "u1" {
		t.Errorf("expected second page to hold u1, got %+v", rows)
	}

	tests := []struct {
		query    string
		expected []string
	}{
		{"p12", []string{"u1"}},
		{"kandy", []string{"u2"}},
		{"(", nil},
		{"", []string{"u3", "u2", "u1"}},
	}
	for _, tt := range tests {
		rows, err := store.List(ctx, appusers.ListOptions{Query: tt.query})
		if err != nil {
			t.Fatalf("List(%q): %v", tt.query, err)
		}
		if len(rows) != len(tt.expected) {
			t.Errorf("query %q: expected %d rows, got %d", tt.query, len(tt.expected), len(rows))
			continue
		}
		for i, id := range tt.expected {
			if rows[i].ID != id {
				t.Errorf("query %q: expected row %d = %s, got %s", tt.query, i, id, rows[i].ID)
			}
		}
	}
}

func TestCreate_AllocatesSequentialCuddlesIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := appusers.New(db)

	due := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	a, err := store.Create(ctx, appusers.NewAppUser{PatientID: "P1", PasswordHash: "h", MOHArea: "Colombo", DueDate: due, Language: "English"})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := store.Create(ctx, appusers.NewAppUser{PatientID: "P2", PasswordHash: "h", MOHArea: "Kandy", DueDate: due, Language: "Tamil"})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if b.Profile.CuddlesID != a.Profile.CuddlesID+1 {
		t.Errorf("expected sequential cuddles ids, got %d then %d", a.Profile.CuddlesID, b.Profile.CuddlesID)
	}
	if a.Platform != models.PlatformWebEntry {
		t.Errorf("expected platform %q, got %q", models.PlatformWebEntry, a.Platform)
	}

	got, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Profile.MOHArea != "Colombo" || !got.Profile.DueDate.Valid {
		t.Errorf("expected profile with MOH area and due date, got %+v", got.Profile)
	}
	if got.PasswordHash != "" {
		t.Error("expected password hash not to be returned")
	}

	_, err = store.Create(ctx, appusers.NewAppUser{PatientID: "P1", PasswordHash: "h", DueDate: due})
	if !errors.Is(err, appusers.ErrDuplicatePatientID) {
		t.Errorf("expected ErrDuplicatePatientID, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	store := appusers.New(db)

	fx.CreateAppUser(ctx, "u1", "P1", "Colombo", time.Now().UTC())

	if err := store.SoftDelete(ctx, "u1", "admin-1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := store.GetByID(ctx, "u1"); !errors.Is(err, appusers.ErrNotFound) {
		t.Errorf("expected deleted user to be hidden, got %v", err)
	}
	rows, _ := store.List(ctx, appusers.ListOptions{})
	if len(rows) != 0 {
		t.Errorf("expected empty list after delete, got %d", len(rows))
	}
	if err := store.SoftDelete(ctx, "u1", "admin-1"); !errors.Is(err, appusers.ErrNotFound) {
		t.Errorf("expected second delete to report ErrNotFound, got %v", err)
	}

	n, err := db.Collection(appusers.UsersCollection).CountDocuments(ctx, map[string]string{"_id": "u1"})
	if err != nil || n != 1 {
		t.Errorf("expected document to remain stored, got n=%d err=%v", n, err)
	}
}

func TestRecentAndSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	store := appusers.New(db)

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		fx.CreateAppUser(ctx, id, "P"+id, "Colombo", base.Add(time.Duration(i)*time.Minute))
	}

	recent, err := store.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 5 || recent[0].ID != "f" {
		t.Errorf("expected 5 newest starting with f, got %d", len(recent))
	}

	all, err := store.Summaries(ctx)
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("expected 6 summaries, got %d", len(all))
	}
}
