// internal/app/features/systemusers/list.go
package systemusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/confinedspace/internal/app/system/inputval"
	"github.com/dalemusser/confinedspace/internal/app/system/normalize"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// technicianOption is one entry of the technician dropdown.
type technicianOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ServeList handles GET /users, optionally filtered by ?role=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role := normalize.Role(query.Get(r, "role"))
	if role != "" && !inputval.IsValidRole(role) {
		respond.Message(w, http.StatusBadRequest, "Unknown role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.List(ctx, role)
	if err != nil {
		h.Log.Error("list users", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not load users")
		return
	}
	respond.OK(w, map[string]any{"users": users})
}

// ServeTechnicians handles GET /users/technicians. The names returned are
// what the order form writes into the free-text technician field.
func (h *Handler) ServeTechnicians(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Users.List(ctx, "technician")
	if err != nil {
		h.Log.Error("list technicians", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not load technicians")
		return
	}
	respond.OK(w, map[string]any{"technicians": technicianOptions(users)})
}

func technicianOptions(users []models.User) []technicianOption {
	out := make([]technicianOption, 0, len(users))
	for _, u := range users {
		if u.Status == "disabled" {
			continue
		}
		out = append(out, technicianOption{ID: u.ID.Hex(), Name: u.FullName(), Email: u.Email})
	}
	return out
}
