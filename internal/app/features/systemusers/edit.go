// internal/app/features/systemusers/edit.go
package systemusers

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/confinedspace/internal/app/store/users"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/authz"
	"github.com/dalemusser/confinedspace/internal/app/system/inputval"
	"github.com/dalemusser/confinedspace/internal/app/system/normalize"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roleInput struct {
	Role string `json:"role" label:"Role" validate:"required,role"`
}

type statusInput struct {
	Status string `json:"status" label:"Status" validate:"required,oneof=active disabled"`
}

// HandleRole handles PATCH /users/{id}/role.
func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	var in roleInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in.Role = normalize.Role(in.Role)
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(w, "load user", err)
		return
	}
	if err := h.Users.UpdateRole(ctx, id, in.Role); err != nil {
		h.writeStoreError(w, "update role", err)
		return
	}
	if before.Role != in.Role {
		h.Audit.UserRoleChanged(ctx, r, actorID(r), id, before.Role, in.Role)
	}
	h.respondUser(ctx, w, id)
}

// HandleStatus handles PATCH /users/{id}/status (enable or disable an account).
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	var in statusInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in.Status = normalize.Status(in.Status)
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetStatus(ctx, id, in.Status); err != nil {
		h.writeStoreError(w, "set status", err)
		return
	}
	h.Audit.UserStatusChanged(ctx, r, actorID(r), id, in.Status)
	h.respondUser(ctx, w, id)
}

// targetID parses {id} and refuses changes to the caller's own account, so
// an admin cannot lock themselves out.
func (h *Handler) targetID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, apperr.ErrNotFound)
		return primitive.NilObjectID, false
	}
	if _, _, self, ok := authz.UserCtx(r); ok && self == id {
		respond.Message(w, http.StatusBadRequest, "You cannot change your own account here")
		return primitive.NilObjectID, false
	}
	return id, true
}

func actorID(r *http.Request) primitive.ObjectID {
	_, _, id, _ := authz.UserCtx(r)
	return id
}

func (h *Handler) respondUser(ctx context.Context, w http.ResponseWriter, id primitive.ObjectID) {
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(w, "reload user", err)
		return
	}
	u.PasswordHash = ""
	respond.OK(w, map[string]any{"user": u})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Error(w, h.Log, apperr.ErrNotFound)
		return
	}
	h.Log.Error(op, zap.Error(err))
	respond.Message(w, http.StatusInternalServerError, "Could not update user")
}
