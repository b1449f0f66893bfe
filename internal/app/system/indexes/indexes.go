// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureWorkOrders(ctx, db); err != nil {
		problems = append(problems, "work_orders: "+err.Error())
	}
	if err := ensureLocations(ctx, db); err != nil {
		problems = append(problems, "locations: "+err.Error())
	}
	if err := ensureBuildings(ctx, db); err != nil {
		problems = append(problems, "buildings: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collections                                                                */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_users_email").SetUnique(true),
		},
		{
			// technician dropdown and the admin user list
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}},
			Options: options.Index().SetName("idx_users_role_name"),
		},
	})
}

func ensureWorkOrders(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("work_orders"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "internal_id", Value: 1}},
			Options: options.Index().SetName("uniq_work_orders_internal_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "unique_id", Value: 1}},
			Options: options.Index().SetName("uniq_work_orders_unique_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "work_order_id", Value: 1}},
			Options: options.Index().SetName("uniq_work_orders_work_order_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_work_orders_status_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_work_orders_user_created"),
		},
		{
			Keys:    bson.D{{Key: "technician", Value: 1}},
			Options: options.Index().SetName("idx_work_orders_technician"),
		},
		{
			Keys:    bson.D{{Key: "date_of_survey", Value: -1}},
			Options: options.Index().SetName("idx_work_orders_date_of_survey"),
		},
	})
}

func ensureLocations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("locations"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_locations_nameci_id"),
		},
	})
}

func ensureBuildings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("buildings"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "location_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_buildings_location_nameci"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

// existingBySig lists the collection's indexes keyed by key signature.
func existingBySig(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func createErr(coll *mongo.Collection, name string, unique bool, err error) string {
	if unique && isDuplicateKeyErr(err) {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

// replace drops old and creates m in its place.
func replace(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel, name string, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		zap.L().Warn("drop existing index failed",
			zap.String("collection", coll.Name()),
			zap.String("name", old),
			zap.Error(err))
		return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return errors.New(createErr(coll, name, unique, err))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var uniquePtr *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			uniquePtr = m.Options.Unique
		}
		unique := uniquePtr != nil && *uniquePtr
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))
		log.Info("ensuring index")

		existing := existingBySig(ctx, coll)

		if ex, ok := existing[sig]; ok {
			switch {
			case sameBoolPtr(uniquePtr, ex.Unique) && (name == "" || ex.Name == name):
				log.Info("reusing existing index", zap.String("took", time.Since(start).String()))
			case sameBoolPtr(uniquePtr, ex.Unique):
				// Same keys under another name: drop & recreate with ours.
				if err := replace(ctx, coll, ex.Name, m, name, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index renamed", zap.String("from", ex.Name), zap.String("took", time.Since(start).String()))
			default:
				// Options mismatch (e.g., upgrading to unique).
				if err := replace(ctx, coll, ex.Name, m, name, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index dropped and recreated", zap.String("took", time.Since(start).String()))
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err == nil {
			log.Info("index ensured",
				zap.String("created_name", created),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// A conflict right after listing means someone else created it; look again.
		if isOptionsConflictErr(err) {
			if ex, ok := existingBySig(ctx, coll)[sig]; ok {
				if sameBoolPtr(uniquePtr, ex.Unique) {
					log.Info("reusing existing index (post-conflict)", zap.String("took", time.Since(start).String()))
					continue
				}
				if rerr := replace(ctx, coll, ex.Name, m, name, unique); rerr != nil {
					errs = append(errs, rerr.Error())
					continue
				}
				log.Info("index dropped and recreated (post-conflict)", zap.String("took", time.Since(start).String()))
				continue
			}
		}

		log.Warn("index ensure failed",
			zap.String("took", time.Since(start).String()),
			zap.Error(err))
		errs = append(errs, createErr(coll, name, unique, err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
