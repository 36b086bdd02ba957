// internal/app/store/activity/store.go
package activity

import (
	"context"
	"fmt"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VisualizationActivityType marks the activity_logs rows the dashboard reads.
const VisualizationActivityType = "Visualization"

// Store reads the per-user activity collections written by the mobile app.
// It never writes them.
type Store struct {
	db *mongo.Database
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates a uid index on every activity collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, name := range []string{
		models.CollKicks,
		models.CollContractions,
		models.CollBreathingSessions,
		models.CollMoods,
		models.CollReadChapters,
		models.CollVisualizationSessions,
		models.CollAppSessions,
	} {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetName("idx_" + name + "_uid"),
		})
		if err != nil {
			return fmt.Errorf("%s indexes: %w", name, err)
		}
	}
	_, err := s.db.Collection(models.CollActivityLogs).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "activityType", Value: 1}},
		Options: options.Index().SetName("idx_activity_logs_uid_type"),
	})
	if err != nil {
		return fmt.Errorf("%s indexes: %w", models.CollActivityLogs, err)
	}
	return nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M) ([]T, error) {
	cur, err := c.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.Name(), err)
	}
	defer cur.Close(ctx)

	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return out, nil
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Kicks returns every kick-counting session of uid.
func (s *Store) Kicks(ctx context.Context, uid string) ([]models.KickEntry, error) {
	return findAll[models.KickEntry](ctx, s.coll(models.CollKicks), bson.M{"uid": uid})
}

// Contractions returns every timed contraction of uid.
func (s *Store) Contractions(ctx context.Context, uid string) ([]models.ContractionEntry, error) {
	return findAll[models.ContractionEntry](ctx, s.coll(models.CollContractions), bson.M{"uid": uid})
}

// BreathingSessions returns every breathing exercise of uid.
func (s *Store) BreathingSessions(ctx context.Context, uid string) ([]models.ExerciseSession, error) {
	return findAll[models.ExerciseSession](ctx, s.coll(models.CollBreathingSessions), bson.M{"uid": uid})
}

// Moods returns every mood check-in of uid.
func (s *Store) Moods(ctx context.Context, uid string) ([]models.MoodEntry, error) {
	return findAll[models.MoodEntry](ctx, s.coll(models.CollMoods), bson.M{"uid": uid})
}

// ReadChapters returns every psychoeducation chapter read by uid.
func (s *Store) ReadChapters(ctx context.Context, uid string) ([]models.ChapterRead, error) {
	return findAll[models.ChapterRead](ctx, s.coll(models.CollReadChapters), bson.M{"uid": uid})
}

// VisualizationSessions returns the dedicated visualization sessions of uid.
func (s *Store) VisualizationSessions(ctx context.Context, uid string) ([]models.ExerciseSession, error) {
	return findAll[models.ExerciseSession](ctx, s.coll(models.CollVisualizationSessions), bson.M{"uid": uid})
}

// VisualizationLogs returns the Visualization rows of activity_logs for uid.
func (s *Store) VisualizationLogs(ctx context.Context, uid string) ([]models.ExerciseSession, error) {
	rows, err := findAll[models.ActivityLogEntry](ctx, s.coll(models.CollActivityLogs),
		bson.M{"uid": uid, "activityType": VisualizationActivityType})
	if err != nil {
		return nil, err
	}
	out := make([]models.ExerciseSession, len(rows))
	for i, r := range rows {
		out[i] = r.AsExerciseSession()
	}
	return out, nil
}

// AppSessions returns every foreground session of uid.
func (s *Store) AppSessions(ctx context.Context, uid string) ([]models.AppSession, error) {
	return findAll[models.AppSession](ctx, s.coll(models.CollAppSessions), bson.M{"uid": uid})
}
