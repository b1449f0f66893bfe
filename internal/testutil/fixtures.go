package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user whose password is "password123".
func (f *Fixtures) CreateUser(ctx context.Context, first, last, email, role string) models.User {
	f.t.Helper()

	// MinCost keeps fixture setup fast; the store itself uses its own cost.
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		Status:       "active",
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateLocation inserts a location with the given name.
func (f *Fixtures) CreateLocation(ctx context.Context, name string) models.Location {
	f.t.Helper()

	now := time.Now().UTC()
	loc := models.Location{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Address:   "1 Test Way",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("locations").InsertOne(ctx, loc); err != nil {
		f.t.Fatalf("failed to create test location: %v", err)
	}
	return loc
}

// CreateOrder inserts a pending order owned by owner. mutate, if non-nil,
// can adjust the order before it is written.
func (f *Fixtures) CreateOrder(ctx context.Context, owner models.User, mutate func(*models.Order)) models.Order {
	f.t.Helper()

	now := time.Now().UTC()
	o := models.Order{
		ID:                  primitive.NewObjectID(),
		InternalID:          uuid.NewString(),
		UniqueID:            uuid.NewString()[:8],
		WorkOrderID:         "WO-TEST-" + uuid.NewString()[:8],
		UserID:              owner.ID,
		CreatedBy:           owner.FullName(),
		LastModifiedBy:      owner.FullName(),
		Priority:            models.PriorityMedium,
		Status:              models.StatusPending,
		DateOfSurvey:        now.Truncate(24 * time.Hour),
		Surveyors:           []string{owner.FullName()},
		SpaceName:           "Wet well",
		Building:            "Pump House",
		LocationDescription: "North side",
		NumberOfEntryPoints: 1,
		ImageURLs:           []string{},
		WorkflowHistory: []models.WorkflowEntry{{
			Action:      models.ActionCreated,
			PerformedBy: owner.FullName(),
			Timestamp:   now,
			NewStatus:   models.StatusPending,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(&o)
	}

	if _, err := f.db.Collection("work_orders").InsertOne(ctx, o); err != nil {
		f.t.Fatalf("failed to create test order: %v", err)
	}
	return o
}
