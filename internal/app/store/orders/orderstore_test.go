package orderstore_test

import (
	"errors"
	"testing"
	"time"

	orderstore "github.com/dalemusser/confinedspace/internal/app/store/orders"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/confinedspace/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestIdentFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	withOID := orderstore.IdentFilter(oid.Hex())
	if n := len(withOID["$or"].(bson.A)); n != 4 {
		t.Errorf("hex ident: expected 4 alternatives, got %d", n)
	}

	plain := orderstore.IdentFilter(" WO-2024-05-0001 ")
	alts := plain["$or"].(bson.A)
	if len(alts) != 3 {
		t.Fatalf("non-hex ident: expected 3 alternatives, got %d", len(alts))
	}
	if alts[2].(bson.M)["work_order_id"] != "WO-2024-05-0001" {
		t.Errorf("ident not trimmed: %v", alts[2])
	}
}

func TestStore_FindOneByAnyIdent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Jane", "Doe", "jane@example.com", "user")
	o := fixtures.CreateOrder(ctx, owner, nil)

	for _, ident := range []string{o.ID.Hex(), o.InternalID, o.UniqueID, o.WorkOrderID} {
		got, err := store.FindOne(ctx, orderstore.IdentFilter(ident))
		if err != nil {
			t.Fatalf("FindOne(%q) failed: %v", ident, err)
		}
		if got.ID != o.ID {
			t.Errorf("FindOne(%q) returned %v, want %v", ident, got.ID, o.ID)
		}
	}

	_, err := store.FindOne(ctx, orderstore.IdentFilter("nope"))
	if !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateConditionalOnStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Jane", "Doe", "jane@example.com", "user")
	o := fixtures.CreateOrder(ctx, owner, nil)
	at := time.Now().UTC()

	entry := models.WorkflowEntry{
		Action:         models.ActionStatusChanged,
		PerformedBy:    "Jane Doe",
		Timestamp:      at,
		PreviousStatus: models.StatusPending,
		NewStatus:      models.StatusApproved,
	}
	ok, err := store.Update(ctx,
		bson.M{"_id": o.ID, "status": models.StatusPending},
		bson.M{"status": models.StatusApproved}, entry, at)
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}

	// The order is no longer pending, so a second write keyed on pending misses.
	ok, err = store.Update(ctx,
		bson.M{"_id": o.ID, "status": models.StatusPending},
		bson.M{"status": models.StatusCancelled}, entry, at)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if ok {
		t.Error("expected stale-status update to match nothing")
	}

	got, _ := store.FindOne(ctx, bson.M{"_id": o.ID})
	if got.Status != models.StatusApproved {
		t.Errorf("Status = %q, want approved", got.Status)
	}
	if len(got.WorkflowHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(got.WorkflowHistory))
	}
}

func TestStore_AppendImages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Jane", "Doe", "jane@example.com", "user")
	o := fixtures.CreateOrder(ctx, owner, func(o *models.Order) { o.ImageURLs = []string{"/files/a.jpg"} })

	at := time.Now().UTC()
	ok, err := store.AppendImages(ctx, bson.M{"_id": o.ID},
		[]string{"/files/b.jpg", "/files/c.jpg"},
		models.WorkflowEntry{Action: models.ActionImagesAdded, Timestamp: at},
		bson.M{"last_modified_by": "Jane Doe"}, at)
	if err != nil || !ok {
		t.Fatalf("AppendImages: ok=%v err=%v", ok, err)
	}

	got, _ := store.FindOne(ctx, bson.M{"_id": o.ID})
	if len(got.ImageURLs) != 3 || got.ImageURLs[2] != "/files/c.jpg" {
		t.Errorf("ImageURLs = %v", got.ImageURLs)
	}
	if got.WorkflowHistory[len(got.WorkflowHistory)-1].Action != models.ActionImagesAdded {
		t.Error("expected images_added entry last")
	}
}

func TestStore_FindCountDeleteAndStatusCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Jane", "Doe", "jane@example.com", "user")
	fixtures.CreateOrder(ctx, owner, nil)
	fixtures.CreateOrder(ctx, owner, nil)
	done := fixtures.CreateOrder(ctx, owner, func(o *models.Order) { o.Status = models.StatusCompleted })

	n, err := store.Count(ctx, bson.M{"user_id": owner.ID})
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}

	page, err := store.Find(ctx, bson.M{}, options.Find().SetLimit(2).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("Find returned %d, want 2", len(page))
	}

	counts, err := store.StatusCounts(ctx, bson.M{})
	if err != nil {
		t.Fatalf("StatusCounts failed: %v", err)
	}
	if counts[models.StatusPending] != 2 || counts[models.StatusCompleted] != 1 {
		t.Errorf("StatusCounts = %v", counts)
	}

	ok, err := store.Delete(ctx, bson.M{"_id": done.ID})
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	ok, _ = store.Delete(ctx, bson.M{"_id": done.ID})
	if ok {
		t.Error("second Delete should report nothing removed")
	}
}
