// internal/app/store/orders/orderstore.go
package orderstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no order matches the filter.
var ErrNotFound = apperr.ErrNotFound

// Collection is the orders collection name.
const Collection = "work_orders"

// Store persists work orders. It applies whatever filter it is given;
// access scoping is the caller's job (see orderpolicy).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// IdentFilter matches an order by any of its identifiers: the ObjectID hex,
// uniqueId, internalId or workOrderId.
func IdentFilter(ident string) bson.M {
	ident = strings.TrimSpace(ident)
	or := bson.A{
		bson.M{"unique_id": ident},
		bson.M{"internal_id": ident},
		bson.M{"work_order_id": ident},
	}
	if oid, err := primitive.ObjectIDFromHex(ident); err == nil {
		or = append(bson.A{bson.M{"_id": oid}}, or...)
	}
	return bson.M{"$or": or}
}

// Insert writes a new order and returns it with its ObjectID set.
func (s *Store) Insert(ctx context.Context, o models.Order) (models.Order, error) {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

// FindOne returns the first order matching filter.
func (s *Store) FindOne(ctx context.Context, filter bson.M) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, filter).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return o, nil
}

// Find returns every order matching filter under opts (sort/skip/limit).
func (s *Store) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of orders matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// Update applies set and appends entry in one single-document write, but
// only if an order still matches filter. It reports whether one matched.
//
// updated_at is always set. Callers put the fields they read (e.g. status)
// into filter to make the write conditional on them.
func (s *Store) Update(ctx context.Context, filter bson.M, set bson.M, entry models.WorkflowEntry, at time.Time) (bool, error) {
	doc := bson.M{}
	for k, v := range set {
		doc[k] = v
	}
	doc["updated_at"] = at

	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$set":  doc,
		"$push": bson.M{"workflow_history": entry},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// AppendImages pushes urls onto image_urls and appends entry.
func (s *Store) AppendImages(ctx context.Context, filter bson.M, urls []string, entry models.WorkflowEntry, set bson.M, at time.Time) (bool, error) {
	doc := bson.M{"updated_at": at}
	for k, v := range set {
		doc[k] = v
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$set": doc,
		"$push": bson.M{
			"image_urls":       bson.M{"$each": urls},
			"workflow_history": entry,
		},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Delete removes the order matching filter and reports whether one was removed.
func (s *Store) Delete(ctx context.Context, filter bson.M) (bool, error) {
	res, err := s.c.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// StatusCounts groups the orders matching filter by status.
func (s *Store) StatusCounts(ctx context.Context, filter bson.M) (map[models.OrderStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[models.OrderStatus]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status models.OrderStatus `bson:"_id"`
			N      int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}
