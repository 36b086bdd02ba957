// internal/app/store/passwordresets/store.go
package passwordresets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CollectionName holds pending password resets.
	CollectionName = "password_resets"
	// DefaultExpiry is how long a reset link is valid.
	DefaultExpiry = time.Hour
	// BcryptCost for hashing the token secret.
	BcryptCost = 10
)

var (
	// ErrInvalidToken is returned for unknown, malformed, expired or
	// already used tokens. Callers show one message for all of them.
	ErrInvalidToken = errors.New("This reset link is invalid or has expired.")
)

// Reset is a pending password reset. Only a bcrypt hash of the secret
// part of the token is stored.
type Reset struct {
	ID        primitive.ObjectID `bson:"_id"`
	AdminID   primitive.ObjectID `bson:"admin_id"`
	Email     string             `bson:"email"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
}

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection(CollectionName),
		expiry: expiry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Expiry returns how long new tokens stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// EnsureIndexes creates the TTL and lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_pwreset_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "admin_id", Value: 1}},
			Options: options.Index().SetName("idx_pwreset_admin"),
		},
	}
	if _, err := s.c.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("password reset indexes: %w", err)
	}
	return nil
}

// Create replaces any pending reset for the admin with a new one and
// returns the token to mail. The token is "<record id>.<uuid>".
func (s *Store) Create(ctx context.Context, adminID primitive.ObjectID, email string) (string, error) {
	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash reset token: %w", err)
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"admin_id": adminID}); err != nil {
		return "", fmt.Errorf("clear old resets: %w", err)
	}

	now := s.now()
	rec := Reset{
		ID:        primitive.NewObjectID(),
		AdminID:   adminID,
		Email:     email,
		TokenHash: string(hash),
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("insert reset: %w", err)
	}
	return rec.ID.Hex() + "." + secret, nil
}

// Peek validates a token without using it up, for rendering the reset form.
func (s *Store) Peek(ctx context.Context, token string) (*Reset, error) {
	return s.lookup(ctx, token)
}

// Consume validates a token and marks it used. A token can be consumed
// once; a concurrent second Consume gets ErrInvalidToken.
func (s *Store) Consume(ctx context.Context, token string) (*Reset, error) {
	rec, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": rec.ID, "used_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"used_at": now}},
	)
	if err != nil {
		return nil, fmt.Errorf("mark reset used: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, ErrInvalidToken
	}
	rec.UsedAt = &now
	return rec, nil
}

func (s *Store) lookup(ctx context.Context, token string) (*Reset, error) {
	idHex, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || secret == "" {
		return nil, ErrInvalidToken
	}
	oid, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var rec Reset
	err = s.c.FindOne(ctx, bson.M{
		"_id":        oid,
		"used_at":    bson.M{"$exists": false},
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find reset: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.TokenHash), []byte(secret)) != nil {
		return nil, ErrInvalidToken
	}
	return &rec, nil
}

// DeleteByAdmin removes all pending resets for an admin.
func (s *Store) DeleteByAdmin(ctx context.Context, adminID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"admin_id": adminID})
	return err
}
