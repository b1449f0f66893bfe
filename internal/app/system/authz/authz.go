// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/confinedspace/internal/app/policy/orderpolicy"
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), display name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name(), userID, true
}

// Caller builds the order-policy identity for the signed-in user.
func Caller(r *http.Request) (orderpolicy.Caller, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return orderpolicy.Caller{}, false
	}
	role, _, id, ok := UserCtx(r)
	if !ok {
		return orderpolicy.Caller{}, false
	}
	return orderpolicy.Caller{
		ID:        id,
		Role:      role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, true
}

// HasAnyRole reports whether the current request's user has any of the given roles.
// Returns false if no user is present (i.e., not signed in).
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	return HasAnyRole(r, orderpolicy.RoleAdmin)
}

// CanManageSites reports whether the user may create, edit or delete
// locations and buildings.
func CanManageSites(r *http.Request) bool {
	return HasAnyRole(r, orderpolicy.RoleAdmin, orderpolicy.RoleManager)
}
