// internal/app/store/appusers/store.go
package appusers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. users and user_profiles are owned by the mobile app.
const (
	UsersCollection    = "users"
	ProfilesCollection = "user_profiles"
	CountersCollection = "counters"

	cuddlesCounterID = "cuddles_users"
)

var (
	// ErrNotFound is returned when no app user matches.
	ErrNotFound = errors.New("app user not found")
	// ErrDuplicatePatientID is returned when a patient id is already in use.
	ErrDuplicatePatientID = errors.New("Patient ID is already registered.")
)

// notDeleted matches users that were not soft-deleted.
var notDeleted = bson.M{"deletedAt": bson.M{"$exists": false}}

// Store reads and moderates app users.
type Store struct {
	users    *mongo.Collection
	profiles *mongo.Collection
	counters *mongo.Collection
}

// New creates a Store on db.
func New(db *mongo.Database) *Store {
	return &Store{
		users:    db.Collection(UsersCollection),
		profiles: db.Collection(ProfilesCollection),
		counters: db.Collection(CountersCollection),
	}
}

// EnsureIndexes creates the list and search indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_users_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "patientid", Value: 1}},
			Options: options.Index().SetName("idx_users_patientid"),
		},
		{
			Keys:    bson.D{{Key: "lastActive", Value: -1}},
			Options: options.Index().SetName("idx_users_last_active"),
		},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.profiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "MOHArea", Value: 1}},
		Options: options.Index().SetName("idx_profiles_moh_area"),
	}); err != nil {
		return fmt.Errorf("user_profiles indexes: %w", err)
	}
	return nil
}

// ListOptions filters the mothers list.
type ListOptions struct {
	// Query matches a substring of the patient id or MOH area,
	// case-insensitively.
	Query string
	// Limit caps the result; zero means no limit.
	Limit int64
	// Skip drops that many rows from the front of the newest-first order.
	Skip int64
}

// List returns non-deleted users, newest first, merged with their
// profiles. Users without a profile get an empty one.
func (s *Store) List(ctx context.Context, opt ListOptions) ([]models.AppUserRow, error) {
	filter := bson.M{"deletedAt": bson.M{"$exists": false}}

	if q := strings.TrimSpace(opt.Query); q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		areaIDs, err := s.profileIDsByArea(ctx, re)
		if err != nil {
			return nil, err
		}
		or := bson.A{bson.M{"patientid": re}}
		if len(areaIDs) > 0 {
			or = append(or, bson.M{"_id": bson.M{"$in": areaIDs}})
		}
		filter["$or"] = or
	}

	fo := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"password_hash": 0})
	if opt.Limit > 0 {
		fo.SetLimit(opt.Limit)
	}
	if opt.Skip > 0 {
		fo.SetSkip(opt.Skip)
	}

	cur, err := s.users.Find(ctx, filter, fo)
	if err != nil {
		return nil, fmt.Errorf("list app users: %w", err)
	}
	defer cur.Close(ctx)

	var users []models.AppUser
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode app users: %w", err)
	}
	return s.mergeProfiles(ctx, users)
}

func (s *Store) profileIDsByArea(ctx context.Context, re primitive.Regex) ([]string, error) {
	cur, err := s.profiles.Find(ctx, bson.M{"MOHArea": re}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

func (s *Store) mergeProfiles(ctx context.Context, users []models.AppUser) ([]models.AppUserRow, error) {
	if len(users) == 0 {
		return nil, nil
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	cur, err := s.profiles.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer cur.Close(ctx)

	var profiles []models.AppUserProfile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	byID := make(map[string]models.AppUserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	rows := make([]models.AppUserRow, len(users))
	for i, u := range users {
		p, ok := byID[u.ID]
		if !ok {
			p = models.AppUserProfile{ID: u.ID}
		}
		rows[i] = models.AppUserRow{AppUser: u, Profile: p}
	}
	return rows, nil
}

// GetByID loads one non-deleted user with profile.
func (s *Store) GetByID(ctx context.Context, uid string) (models.AppUserRow, error) {
	var u models.AppUser
	err := s.users.FindOne(ctx, bson.M{"_id": uid, "deletedAt": bson.M{"$exists": false}},
		options.FindOne().SetProjection(bson.M{"password_hash": 0})).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AppUserRow{}, ErrNotFound
	}
	if err != nil {
		return models.AppUserRow{}, fmt.Errorf("load app user: %w", err)
	}

	row := models.AppUserRow{AppUser: u, Profile: models.AppUserProfile{ID: uid}}
	err = s.profiles.FindOne(ctx, bson.M{"_id": uid}).Decode(&row.Profile)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return models.AppUserRow{}, fmt.Errorf("load app user profile: %w", err)
	}
	return row, nil
}

// NewAppUser is the input of Create.
type NewAppUser struct {
	PatientID    string
	PasswordHash string
	MOHArea      string
	Education    string
	Language     string
	DueDate      time.Time
}

// Create registers a mother entered from the dashboard. The internal
// cuddles id is allocated from a counter so ids never repeat.
func (s *Store) Create(ctx context.Context, in NewAppUser) (models.AppUserRow, error) {
	in.PatientID = strings.TrimSpace(in.PatientID)

	n, err := s.users.CountDocuments(ctx, bson.M{"patientid": in.PatientID, "deletedAt": bson.M{"$exists": false}})
	if err != nil {
		return models.AppUserRow{}, fmt.Errorf("check patient id: %w", err)
	}
	if n > 0 {
		return models.AppUserRow{}, ErrDuplicatePatientID
	}

	cuddlesID, err := s.nextCuddlesID(ctx)
	if err != nil {
		return models.AppUserRow{}, err
	}

	now := models.NewFlexTime(time.Now().UTC())
	uid := primitive.NewObjectID().Hex()
	u := models.AppUser{
		ID:           uid,
		PatientID:    in.PatientID,
		DisplayName:  in.PatientID,
		Platform:     models.PlatformWebEntry,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		LastActive:   now,
	}
	p := models.AppUserProfile{
		ID:             uid,
		PatientID:      in.PatientID,
		MOHArea:        strings.TrimSpace(in.MOHArea),
		DueDate:        models.NewFlexTime(in.DueDate),
		Education:      strings.TrimSpace(in.Education),
		Language:       in.Language,
		CuddlesID:      cuddlesID,
		RegisteredDate: now,
		UpdatedAt:      now,
	}

	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return models.AppUserRow{}, fmt.Errorf("insert app user: %w", err)
	}
	if _, err := s.profiles.InsertOne(ctx, p); err != nil {
		// Leave no half-registered user behind.
		_, _ = s.users.DeleteOne(ctx, bson.M{"_id": uid})
		return models.AppUserRow{}, fmt.Errorf("insert app user profile: %w", err)
	}
	u.PasswordHash = ""
	return models.AppUserRow{AppUser: u, Profile: p}, nil
}

func (s *Store) nextCuddlesID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": cuddlesCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("allocate cuddles id: %w", err)
	}
	return doc.Seq, nil
}

// SoftDelete marks a user deleted. The mobile app's data is kept.
func (s *Store) SoftDelete(ctx context.Context, uid, deletedBy string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": uid, "deletedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"deletedAt": time.Now().UTC(), "deletedBy": deletedBy}},
	)
	if err != nil {
		return fmt.Errorf("delete app user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Summaries returns the fields analytics needs for every non-deleted user.
func (s *Store) Summaries(ctx context.Context) ([]models.AppUser, error) {
	opts := options.Find().SetProjection(bson.M{
		"patientid": 1, "displayName": 1, "platform": 1, "createdAt": 1, "lastActive": 1,
	})
	cur, err := s.users.Find(ctx, notDeleted, opts)
	if err != nil {
		return nil, fmt.Errorf("load user summaries: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.AppUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode user summaries: %w", err)
	}
	return out, nil
}

// Recent returns the n newest non-deleted users.
func (s *Store) Recent(ctx context.Context, n int64) ([]models.AppUser, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(n).
		SetProjection(bson.M{"password_hash": 0})
	cur, err := s.users.Find(ctx, notDeleted, opts)
	if err != nil {
		return nil, fmt.Errorf("recent app users: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.AppUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode recent app users: %w", err)
	}
	return out, nil
}
