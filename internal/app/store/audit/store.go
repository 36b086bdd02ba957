// internal/app/store/audit/store.go
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the audit trail collection.
const CollectionName = "audit_events"

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUnknown       = "login_failed_unknown_account"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedDisabled      = "login_failed_disabled"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
	EventSessionExpired           = "session_expired"
	EventPasswordResetRequested   = "password_reset_requested"
	EventPasswordResetCompleted   = "password_reset_completed"
)

// Admin event types
const (
	EventAdminInvited     = "admin_invited"
	EventAdminUpdated     = "admin_updated"
	EventAdminDeactivated = "admin_deactivated"
	EventAppUserCreated   = "app_user_created"
	EventAppUserDeleted   = "app_user_deleted"
	EventContentSaved     = "content_saved"
	EventContentDeleted   = "content_deleted"
	EventSettingsUpdated  = "settings_updated"
	EventAccessDenied     = "access_denied"
)

// Target kinds name what TargetID refers to.
const (
	TargetAdmin   = "admin"
	TargetAppUser = "app_user"
	TargetContent = "content"
	TargetConfig  = "app_config"
)

// loginFailures are the event types counted as failed sign-ins.
var loginFailures = []string{
	EventLoginFailedUnknown,
	EventLoginFailedWrongPassword,
	EventLoginFailedDisabled,
	EventLoginFailedRateLimit,
}

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// ActorID is the staff member who acted; nil for anonymous events
	// such as a failed sign-in with an unknown email.
	ActorID    *primitive.ObjectID `bson:"actor_id,omitempty"`
	TargetKind string              `bson:"target_kind,omitempty"`
	TargetID   string              `bson:"target_id,omitempty"`

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	TargetID  string
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

func (f QueryFilter) toBSON() bson.M {
	query := bson.M{}
	if f.ActorID != nil {
		query["actor_id"] = *f.ActorID
	}
	if f.TargetID != "" {
		query["target_id"] = f.TargetID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		query["timestamp"] = tq
	}
	return query
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates the query indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys: bson.D{
				{Key: "actor_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_actor_ts"),
		},
		{
			Keys: bson.D{
				{Key: "target_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_target_ts"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_cat_type_ts"),
		},
	}
	if _, err := s.c.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}

// Log records an audit event, filling in the id and timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query retrieves audit events matching the filter, newest first.
// Limit defaults to 100.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	return s.find(ctx, filter.toBSON(), opts)
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.toBSON())
}

// GetByActor retrieves recent events performed by one staff member.
func (s *Store) GetByActor(ctx context.Context, actorID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{ActorID: &actorID, Limit: limit})
}

// GetByTarget retrieves recent events about one admin, app user or
// content item.
func (s *Store) GetByTarget(ctx context.Context, targetID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{TargetID: targetID, Limit: limit})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}

// GetFailedLogins retrieves failed sign-in attempts since the given time.
func (s *Store) GetFailedLogins(ctx context.Context, since time.Time, limit int64) ([]Event, error) {
	query := bson.M{
		"category":   CategoryAuth,
		"success":    false,
		"event_type": bson.M{"$in": loginFailures},
		"timestamp":  bson.M{"$gte": since},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)
	return s.find(ctx, query, opts)
}

func (s *Store) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]Event, error) {
	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	return events, nil
}
