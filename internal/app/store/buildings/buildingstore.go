// internal/app/store/buildings/buildingstore.go
package buildingstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no building matches.
var ErrNotFound = errors.New("building not found")

var errNameRequired = errors.New("building name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("buildings")}
}

// Create inserts a building under b.LocationID.
func (s *Store) Create(ctx context.Context, b models.Building) (models.Building, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return models.Building{}, errNameRequired
	}
	if b.Floors < 0 {
		b.Floors = 0
	}
	b.ID = primitive.NewObjectID()
	b.NameCI = text.Fold(b.Name)
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Building{}, err
	}
	return b, nil
}

// ListByLocation returns a location's buildings sorted by name.
func (s *Store) ListByLocation(ctx context.Context, locationID primitive.ObjectID) ([]models.Building, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"location_id": locationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Building{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update edits a building, which must belong to locationID.
func (s *Store) Update(ctx context.Context, locationID, id primitive.ObjectID, b models.Building) (models.Building, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return models.Building{}, errNameRequired
	}
	if b.Floors < 0 {
		b.Floors = 0
	}
	set := bson.M{
		"name":        b.Name,
		"name_ci":     text.Fold(b.Name),
		"description": strings.TrimSpace(b.Description),
		"floors":      b.Floors,
		"updated_at":  time.Now().UTC(),
	}

	var out models.Building
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "location_id": locationID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Building{}, ErrNotFound
	}
	return out, err
}

// Delete removes one building of locationID.
func (s *Store) Delete(ctx context.Context, locationID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "location_id": locationID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByLocation removes every building of locationID and returns how many.
func (s *Store) DeleteByLocation(ctx context.Context, locationID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"location_id": locationID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
