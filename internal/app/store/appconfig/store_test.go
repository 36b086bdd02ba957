package appconfigstore_test

import (
	"testing"
	"time"

	appconfigstore "github.com/dalemusser/mansahub/internal/app/store/appconfig"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/mansahub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGet_DefaultsWhenMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg, err := appconfigstore.New(db).Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.AppName != models.DefaultAppName {
		t.Errorf("expected app name %q, got %q", models.DefaultAppName, cfg.AppName)
	}
	if cfg.Timeout() != 30*time.Minute {
		t.Errorf("expected 30m timeout, got %v", cfg.Timeout())
	}
}

func TestGet_AcceptsStringAndNumberTimeouts(t *testing.T) {
	tests := []struct {
		name     string
		stored   interface{}
		expected time.Duration
	}{
		{"string", "60", time.Hour},
		{"int", int32(15), 15 * time.Minute},
		{"double", float64(120), 2 * time.Hour},
		{"garbage", "soon", 30 * time.Minute},
		{"zero", int32(0), 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			_, err := db.Collection("app_config").InsertOne(ctx, bson.M{
				"_id":            models.AppConfigID,
				"appName":        "MAnSA Pilot",
				"sessionTimeout": tt.stored,
			})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}

			cfg, err := appconfigstore.New(db).Get(ctx)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if cfg.Timeout() != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, cfg.Timeout())
			}
		})
	}
}

func TestSave_UpsertsAndPreservesOtherFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := appconfigstore.New(db)

	_, err := db.Collection("app_config").InsertOne(ctx, bson.M{
		"_id":          models.AppConfigID,
		"minAppBuild":  42,
		"appName":      "Old",
		"primaryColor": "#000000",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	by := primitive.NewObjectID()
	_, err = store.Save(ctx, models.AppConfig{
		AppName:        "MAnSA",
		PrimaryColor:   "#7c3aed",
		SecondaryColor: "#f472b6",
		SessionTimeout: 15,
	}, by, "Dr. Perera")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AppName != "MAnSA" || got.PrimaryColor != "#7c3aed" {
		t.Errorf("expected saved branding, got %+v", got)
	}
	if got.Timeout() != 15*time.Minute {
		t.Errorf("expected 15m timeout, got %v", got.Timeout())
	}
	if got.UpdatedByName != "Dr. Perera" {
		t.Errorf("expected updatedBy Dr. Perera, got %q", got.UpdatedByName)
	}

	var raw bson.M
	if err := db.Collection("app_config").FindOne(ctx, bson.M{"_id": models.AppConfigID}).Decode(&raw); err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if raw["minAppBuild"] == nil {
		t.Error("expected unrelated field minAppBuild to be preserved")
	}
	if raw["sessionTimeout"] != "15" {
		t.Errorf("expected sessionTimeout stored as string \"15\", got %v", raw["sessionTimeout"])
	}
}
