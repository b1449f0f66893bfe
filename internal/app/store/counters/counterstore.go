// internal/app/store/counters/counterstore.go
package counterstore

import (
	"context"
	"errors"

	"github.com/dalemusser/confinedspace/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEmptyKey is returned when Next is called without a counter name.
var ErrEmptyKey = errors.New("counter key is empty")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

// Next increments the named counter and returns the new value. The first
// call for a key creates the counter and returns 1.
//
// The increment and read happen in one findAndModify, so concurrent callers
// never observe the same value.
func (s *Store) Next(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c models.Counter
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}

// Current returns the counter's value without incrementing it; 0 if unused.
func (s *Store) Current(ctx context.Context, key string) (int64, error) {
	var c models.Counter
	err := s.c.FindOne(ctx, bson.M{"_id": key}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}
