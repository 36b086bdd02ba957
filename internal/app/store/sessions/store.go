// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the staff session ledger.
const CollectionName = "staff_sessions"

// Session creation sources
const (
	CreatedByPassword = "password"
	CreatedByGoogle   = "google"
)

// End reasons
const (
	EndLogout   = "logout"   // staff member signed out
	EndInactive = "inactive" // idle timeout from the session watchdog
	EndExpired  = "expired"  // closed by the cleanup worker after the cookie lapsed
	EndRevoked  = "revoked"  // account deactivated while signed in
)

// ErrNotFound is returned when no session matches.
var ErrNotFound = errors.New("staff session not found")

// Session is one signed-in period of a staff member.
type Session struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	AdminID primitive.ObjectID `bson:"admin_id"`

	LoginAt      time.Time  `bson:"login_at"`
	LogoutAt     *time.Time `bson:"logout_at,omitempty"`
	LastActiveAt time.Time  `bson:"last_active_at"`

	CreatedBy string `bson:"created_by,omitempty"`
	EndReason string `bson:"end_reason,omitempty"`

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Computed on close
	DurationSecs int64 `bson:"duration_secs,omitempty"`
}

// IsOpen reports whether the session has not ended.
func (s Session) IsOpen() bool { return s.LogoutAt == nil }

// Store manages staff sessions.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates the open-session and history indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "logout_at", Value: 1}, {Key: "last_active_at", Value: -1}},
			Options: options.Index().SetName("idx_staff_sessions_open"),
		},
		{
			Keys:    bson.D{{Key: "admin_id", Value: 1}, {Key: "login_at", Value: -1}},
			Options: options.Index().SetName("idx_staff_sessions_admin"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create opens a session for a staff member. Sessions on other devices
// stay open.
func (s *Store) Create(ctx context.Context, adminID primitive.ObjectID, ip, userAgent, createdBy string) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:           primitive.NewObjectID(),
		AdminID:      adminID,
		LoginAt:      now,
		LastActiveAt: now,
		CreatedBy:    createdBy,
		IP:           ip,
		UserAgent:    userAgent,
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create staff session: %w", err)
	}
	return sess, nil
}

// Close ends an open session with reason and records its duration.
// It reports false when the session was already closed or is unknown,
// so repeated closes are harmless.
func (s *Store) Close(ctx context.Context, sessionID primitive.ObjectID, reason string) (bool, error) {
	var sess Session
	err := s.c.FindOne(ctx, bson.M{"_id": sessionID, "logout_at": nil}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load staff session: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": sessionID, "logout_at": nil},
		bson.M{"$set": bson.M{
			"logout_at":     now,
			"end_reason":    reason,
			"duration_secs": int64(now.Sub(sess.LoginAt).Seconds()),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("close staff session: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// CloseHex is Close for a hex id taken from the session cookie.
func (s *Store) CloseHex(ctx context.Context, sessionID, reason string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return false, nil
	}
	return s.Close(ctx, oid, reason)
}

// CloseAllForAdmin ends every open session of adminID, e.g. on
// deactivation. It returns the number closed.
func (s *Store) CloseAllForAdmin(ctx context.Context, adminID primitive.ObjectID, reason string) (int64, error) {
	return s.closeWhere(ctx, bson.M{"admin_id": adminID, "logout_at": nil}, reason, "$$NOW")
}

// UpdateLastActive bumps last_active_at of an open session. It reports
// false when the session is closed or unknown.
func (s *Store) UpdateLastActive(ctx context.Context, sessionID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": sessionID, "logout_at": nil},
		bson.M{"$set": bson.M{"last_active_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("touch staff session: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// GetByID retrieves a session by its ID.
func (s *Store) GetByID(ctx context.Context, sessionID primitive.ObjectID) (Session, error) {
	var sess Session
	err := s.c.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// OpenState reports whether the session with hex id sessionID is still
// open, and for a closed one whether it ended for inactivity. Invalid or
// unknown ids count as closed.
func (s *Store) OpenState(ctx context.Context, sessionID string) (open, inactive bool, err error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return false, false, nil
	}
	sess, err := s.GetByID(ctx, oid)
	if errors.Is(err, ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("load staff session: %w", err)
	}
	if sess.IsOpen() {
		return true, false, nil
	}
	return false, sess.EndReason == EndInactive, nil
}

// GetByAdmin returns the newest sessions of a staff member.
func (s *Store) GetByAdmin(ctx context.Context, adminID primitive.ObjectID, limit int64) ([]Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "login_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"admin_id": adminID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CountOnline counts open sessions active within window.
func (s *Store) CountOnline(ctx context.Context, window time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-window)
	return s.c.CountDocuments(ctx, bson.M{
		"logout_at":      nil,
		"last_active_at": bson.M{"$gte": cutoff},
	})
}

// CloseStale ends open sessions idle for longer than threshold, as of
// their last activity. Used by the cleanup worker for sessions whose
// process died or whose cookie lapsed without a sign-out.
func (s *Store) CloseStale(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	return s.closeWhere(ctx, bson.M{
		"logout_at":      nil,
		"last_active_at": bson.M{"$lt": cutoff},
	}, EndExpired, "$last_active_at")
}

// closeWhere closes matching sessions in one pipeline update so the
// duration is computed from each document's own login_at.
func (s *Store) closeWhere(ctx context.Context, filter bson.M, reason string, endExpr string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"logout_at":  endExpr,
			"end_reason": reason,
		}}},
		{{Key: "$set", Value: bson.M{
			"duration_secs": bson.M{"$toLong": bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{"$logout_at", "$login_at"}}, 1000,
			}}},
		}}},
	}
	res, err := s.c.UpdateMany(ctx, filter, pipeline)
	if err != nil {
		return 0, fmt.Errorf("close staff sessions: %w", err)
	}
	return res.ModifiedCount, nil
}
