// internal/app/store/content/store.go
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is read by the mobile app.
const CollectionName = "app_content"

// ErrNotFound is returned when no content item matches.
var ErrNotFound = errors.New("content not found")

// Store manages localized app content.
type Store struct {
	c *mongo.Collection
}

// New creates a Store on db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates the type and recency indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "updatedAt", Value: -1}},
			Options: options.Index().SetName("idx_content_type_updated"),
		},
		{
			Keys:    bson.D{{Key: "updatedAt", Value: -1}},
			Options: options.Index().SetName("idx_content_updated"),
		},
	})
	return err
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Type     string
	Status   string
	Category string
	// Query matches a substring of the display title, ignoring case
	// and accents.
	Query string
}

// List returns matching items, most recently changed first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.AppContent, error) {
	q := bson.M{}
	if f.Type != "" {
		q["type"] = f.Type
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer cur.Close(ctx)

	var all []models.AppContent
	if err := cur.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}

	// Status defaults and titles live in different places per item, so
	// the remaining filters run on the decoded documents.
	needle := text.Fold(strings.TrimSpace(f.Query))
	out := all[:0]
	for _, c := range all {
		if f.Status != "" && c.DisplayStatus() != f.Status {
			continue
		}
		if f.Category != "" && c.Category() != f.Category {
			continue
		}
		if needle != "" && !strings.Contains(text.Fold(c.DisplayTitle()), needle) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// RecentlyUpdated returns the n most recently updated items.
func (s *Store) RecentlyUpdated(ctx context.Context, n int64) ([]models.AppContent, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(n))
	if err != nil {
		return nil, fmt.Errorf("recent content: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.AppContent
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode recent content: %w", err)
	}
	return out, nil
}

// Get loads one item.
func (s *Store) Get(ctx context.Context, id string) (models.AppContent, error) {
	var c models.AppContent
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AppContent{}, ErrNotFound
	}
	if err != nil {
		return models.AppContent{}, fmt.Errorf("load content: %w", err)
	}
	return c, nil
}

// Exists reports whether id is taken.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check content id: %w", err)
	}
	return n > 0, nil
}

// FAQ is the editable part of an FAQ section.
type FAQ struct {
	EN models.LocalizedContent
	SI models.LocalizedContent
	TA models.LocalizedContent
}

// SaveFAQ upserts the FAQ section id. Other fields on the document, such
// as those the mobile app adds, are left as they are.
func (s *Store) SaveFAQ(ctx context.Context, id string, faq FAQ, updatedBy string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"type":      models.ContentTypeFAQ,
			"en":        faq.EN,
			"si":        faq.SI,
			"ta":        faq.TA,
			"updatedBy": updatedBy,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"status":    models.ContentPublished,
			"createdAt": now,
		},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save faq: %w", err)
	}
	return nil
}

// Delete removes an item. The mobile app stops showing it on next sync.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
