// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts user administration where the router is mounted
// (typically "/users" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// Technician dropdown for the order form.
		pr.With(sm.RequireRole("admin", "manager")).Get("/technicians", h.ServeTechnicians)

		pr.Group(func(ar chi.Router) {
			ar.Use(sm.RequireRole("admin"))
			ar.Get("/", h.ServeList)
			ar.Patch("/{id}/role", h.HandleRole)
			ar.Patch("/{id}/status", h.HandleStatus)
		})
	})

	return r
}
