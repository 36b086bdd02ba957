// internal/app/store/appconfig/store.go
package appconfigstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the app_config collection.
// The dashboard only uses the singleton "general" document.
type Store struct {
	c *mongo.Collection
}

// New creates a new app config store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("app_config")}
}

// Get returns the general config. If it was never saved, the defaults
// are returned with a nil error.
func (s *Store) Get(ctx context.Context) (models.AppConfig, error) {
	var cfg models.AppConfig
	err := s.c.FindOne(ctx, bson.M{"_id": models.AppConfigID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultAppConfig(), nil
	}
	if err != nil {
		return models.AppConfig{}, fmt.Errorf("load app config: %w", err)
	}
	if cfg.AppName == "" {
		cfg.AppName = models.DefaultAppName
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = models.DefaultSessionTimeoutMinutes
	}
	return cfg, nil
}

// Save upserts the general config with the given editor recorded.
// Fields the mobile app owns on the same document are left untouched.
func (s *Store) Save(ctx context.Context, cfg models.AppConfig, byID primitive.ObjectID, byName string) (models.AppConfig, error) {
	now := time.Now().UTC()
	cfg.ID = models.AppConfigID
	cfg.UpdatedAt = &now
	cfg.UpdatedByID = &byID
	cfg.UpdatedByName = byName

	update := bson.M{
		"$set": bson.M{
			"appName":        cfg.AppName,
			"primaryColor":   cfg.PrimaryColor,
			"secondaryColor": cfg.SecondaryColor,
			"sessionTimeout": cfg.SessionTimeout,
			"updatedAt":      now,
			"updatedById":    byID,
			"updatedBy":      byName,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": models.AppConfigID}, update, opts); err != nil {
		return models.AppConfig{}, fmt.Errorf("save app config: %w", err)
	}
	return cfg, nil
}
