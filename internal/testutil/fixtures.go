package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAdmin inserts an active staff member with the given role. The
// password is "secret123".
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email, role string) models.AdminProfile {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	p := models.AdminProfile{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        email,
		EmailCI:      text.Fold(email),
		Role:         role,
		Status:       models.StatusActive,
		AuthMethod:   models.AuthMethodPassword,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("admin_users").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("insert admin: %v", err)
	}
	return p
}

// CreateAppUser inserts a mother with a profile.
func (f *Fixtures) CreateAppUser(ctx context.Context, uid, patientID, mohArea string, createdAt time.Time) models.AppUser {
	f.t.Helper()

	u := models.AppUser{
		ID:          uid,
		PatientID:   patientID,
		DisplayName: patientID,
		Platform:    models.PlatformAndroid,
		CreatedAt:   models.NewFlexTime(createdAt),
		LastActive:  models.NewFlexTime(createdAt),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("insert app user: %v", err)
	}
	p := models.AppUserProfile{
		ID:        uid,
		PatientID: patientID,
		MOHArea:   mohArea,
		Education: "O/L",
		Language:  "si",
	}
	if _, err := f.db.Collection("user_profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("insert app user profile: %v", err)
	}
	return u
}

// Insert writes raw documents into coll, for activity sources written by
// the mobile app in shapes the typed models only read.
func (f *Fixtures) Insert(ctx context.Context, coll string, docs ...interface{}) {
	f.t.Helper()
	if len(docs) == 0 {
		return
	}
	if _, err := f.db.Collection(coll).InsertMany(ctx, docs); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}
