// internal/app/store/locations/locationstore.go
package locationstore

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

// ErrNotFound is returned when no location matches.
var ErrNotFound = errors.New("location not found")

var errNameRequired = errors.New("location name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("locations")}
}

// Create inserts a location. Name is required; coordinates are optional.
func (s *Store) Create(ctx context.Context, l models.Location) (models.Location, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return models.Location{}, errNameRequired
	}
	l.ID = primitive.NewObjectID()
	l.NameCI = text.Fold(l.Name)
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.Location{}, err
	}
	return l, nil
}

// GetByID loads one location.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Location, error) {
	var l models.Location
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Location{}, ErrNotFound
	}
	return l, err
}

// List returns every location sorted by name. A non-empty search matches a
// case-insensitive prefix of the name.
func (s *Store) List(ctx context.Context, search string) ([]models.Location, error) {
	filter := bson.M{}
	if q := text.Fold(search); q != "" {
		filter["name_ci"] = bson.M{"$gte": q, "$lt": q + "\uffff"}
	}
	return s.find(ctx, filter)
}

// WithCoordinates returns the locations that can be placed on a map.
func (s *Store) WithCoordinates(ctx context.Context) ([]models.Location, error) {
	return s.find(ctx, bson.M{
		"latitude":  bson.M{"$exists": true, "$ne": nil},
		"longitude": bson.M{"$exists": true, "$ne": nil},
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Location, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Location{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of a location.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, l models.Location) (models.Location, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return models.Location{}, errNameRequired
	}
	set := bson.M{
		"name":        l.Name,
		"name_ci":     text.Fold(l.Name),
		"address":     strings.TrimSpace(l.Address),
		"description": strings.TrimSpace(l.Description),
		"latitude":    l.Latitude,
		"longitude":   l.Longitude,
		"updated_at":  time.Now().UTC(),
	}

	var out models.Location
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Location{}, ErrNotFound
	}
	return out, err
}

// Delete removes a location. Its buildings are the caller's concern.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
