package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/confinedspace/internal/app/store/users"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/confinedspace/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := models.User{
		Email:     "  Jane.Doe@Example.COM ",
		FirstName: " Jane ",
		LastName:  "Doe",
	}

	created, err := store.Create(ctx, user, "s3cret-pass")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "jane.doe@example.com" {
		t.Errorf("Email: got %q, want normalized", created.Email)
	}
	if created.FirstName != "Jane" {
		t.Errorf("FirstName: got %q, want trimmed", created.FirstName)
	}
	if created.Role != "user" {
		t.Errorf("expected default role 'user', got %q", created.Role)
	}
	if created.Status != userstore.StatusActive {
		t.Errorf("expected status 'active', got %q", created.Status)
	}
	if created.PasswordHash == "" || created.PasswordHash == "s3cret-pass" {
		t.Error("expected a bcrypt hash to be stored")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{Email: "x@example.com", Role: "superadmin"}, "pw-123456")
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Email: "dup@example.com"}, "pw-123456"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{Email: "DUP@example.com"}, "pw-123456")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Sam", "Smith", "sam@example.com", "technician")

	got, err := store.GetByEmail(ctx, " SAM@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID: got %v, want %v", got.ID, u.ID)
	}
}

func TestStore_Authenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Email: "auth@example.com", FirstName: "Al"}, "correct-horse")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"ok", "auth@example.com", "correct-horse", nil},
		{"case-insensitive email", "AUTH@example.com", "correct-horse", nil},
		{"wrong password", "auth@example.com", "battery-staple", userstore.ErrBadCredentials},
		{"unknown email", "nobody@example.com", "correct-horse", userstore.ErrBadCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := store.Authenticate(ctx, tc.email, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && u.ID != created.ID {
				t.Errorf("authenticated wrong user %v", u.ID)
			}
		})
	}

	if err := store.SetStatus(ctx, created.ID, userstore.StatusDisabled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if _, err := store.Authenticate(ctx, "auth@example.com", "correct-horse"); !errors.Is(err, userstore.ErrBadCredentials) {
		t.Errorf("disabled user: expected ErrBadCredentials, got %v", err)
	}
}

func TestStore_ListByRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "Zed", "Young", "zed@example.com", "technician")
	fixtures.CreateUser(ctx, "Amy", "Adams", "amy@example.com", "technician")
	fixtures.CreateUser(ctx, "Mo", "Boss", "mo@example.com", "manager")

	techs, err := store.List(ctx, "technician")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(techs) != 2 {
		t.Fatalf("expected 2 technicians, got %d", len(techs))
	}
	if techs[0].LastName != "Adams" {
		t.Errorf("expected Adams first, got %q", techs[0].LastName)
	}
	if techs[0].PasswordHash != "" {
		t.Error("List must not return password hashes")
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 users, got %d", len(all))
	}
}

func TestStore_UpdateRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Pat", "Lee", "pat@example.com", "user")

	if err := store.UpdateRole(ctx, u.ID, "Manager"); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.Role != "manager" {
		t.Errorf("Role: got %q, want manager", got.Role)
	}

	if err := store.UpdateRole(ctx, u.ID, "owner"); err == nil {
		t.Error("expected error for invalid role")
	}
	if err := store.UpdateRole(ctx, primitive.NewObjectID(), "user"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Kim", "Ray", "kim@example.com", "user")
	if err := store.SetPassword(ctx, u.ID, "new-password"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if _, err := store.Authenticate(ctx, "kim@example.com", "new-password"); err != nil {
		t.Errorf("Authenticate with new password failed: %v", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Tia", "Ng", "tia@example.com", "Technician")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, u.ID.Hex())
	if su == nil {
		t.Fatal("expected a session user")
	}
	if su.Role != "technician" || su.FirstName != "Tia" || su.Email != "tia@example.com" {
		t.Errorf("unexpected session user %+v", su)
	}

	if f.FetchUser(ctx, "garbage") != nil {
		t.Error("expected nil for malformed id")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("expected nil for unknown id")
	}

	if err := store.SetStatus(ctx, u.ID, userstore.StatusDisabled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if f.FetchUser(ctx, u.ID.Hex()) != nil {
		t.Error("expected nil for disabled user")
	}
}
