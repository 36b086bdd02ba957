// internal/app/store/adminusers/store.go
package adminusers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the staff profile collection.
const CollectionName = "admin_users"

var (
	// ErrNotFound is returned when no profile matches.
	ErrNotFound = errors.New("admin profile not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("Email is already registered.")
	errBadRole        = errors.New(`role must be "viewer"|"editor"|"admin"|"superadmin"`)
)

// Store manages staff profiles.
type Store struct {
	c *mongo.Collection
}

// New creates a Store on db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique email index and the list sort index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetName("uniq_admin_email_ci").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_admin_name"),
		},
	})
	return err
}

func decodeOne(res *mongo.SingleResult) (*models.AdminProfile, error) {
	var p models.AdminProfile
	if err := res.Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByID loads a profile.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AdminProfile, error) {
	return decodeOne(s.c.FindOne(ctx, bson.M{"_id": id}))
}

// GetByEmail loads a profile by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.AdminProfile, error) {
	return decodeOne(s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(strings.TrimSpace(email))}))
}

// List returns every profile ordered by name.
func (s *Store) List(ctx context.Context) ([]models.AdminProfile, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.AdminProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode admins: %w", err)
	}
	return out, nil
}

// Create inserts a new active profile. Name and email are normalized.
func (s *Store) Create(ctx context.Context, p models.AdminProfile) (models.AdminProfile, error) {
	p.Role = strings.ToLower(strings.TrimSpace(p.Role))
	if !models.IsValidRole(p.Role) {
		return models.AdminProfile{}, errBadRole
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Name = strings.TrimSpace(p.Name)
	p.NameCI = text.Fold(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.EmailCI = text.Fold(p.Email)
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	if p.AuthMethod == "" {
		p.AuthMethod = models.AuthMethodPassword
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AdminProfile{}, ErrDuplicateEmail
		}
		return models.AdminProfile{}, fmt.Errorf("insert admin: %w", err)
	}
	return p, nil
}

// Update holds the editable fields of a profile. Email is not editable.
type Update struct {
	Name string
	Role string
}

// UpdateProfile sets name and role.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd Update) error {
	role := strings.ToLower(strings.TrimSpace(upd.Role))
	if !models.IsValidRole(role) {
		return errBadRole
	}
	name := strings.TrimSpace(upd.Name)
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate sets status and role to the given deactivated state.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID, status, role string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     status,
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("deactivate admin: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword stores a new bcrypt hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set admin password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastActive records a sign-in or heartbeat time.
func (s *Store) TouchLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_active": at.UTC()}})
	return err
}

// EnsureSuperAdmin promotes the profile with email to an active
// superadmin, creating it with passwordHash if missing. Returns whether
// a profile was created.
func (s *Store) EnsureSuperAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		set := bson.M{
			"role":       models.RoleSuperAdmin,
			"status":     models.StatusActive,
			"updated_at": time.Now().UTC(),
		}
		if existing.PasswordHash == "" && passwordHash != "" {
			set["password_hash"] = passwordHash
		}
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": set})
		return false, err
	case errors.Is(err, ErrNotFound):
		name := email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
		_, err := s.Create(ctx, models.AdminProfile{
			Name:         name,
			Email:        email,
			Role:         models.RoleSuperAdmin,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}
