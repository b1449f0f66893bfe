// internal/app/features/locations/routes.go
package locations

import (
	"github.com/dalemusser/confinedspace/internal/app/policy/orderpolicy"
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts sites and buildings (typically at "/locations"). Any
// signed-in user may read; admins and managers may write.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/map", h.ServeMap)
		pr.Get("/{id}", h.ServeLocation)
		pr.Get("/{id}/buildings", h.ServeBuildings)

		pr.Group(func(mr chi.Router) {
			mr.Use(sm.RequireRole(orderpolicy.RoleAdmin, orderpolicy.RoleManager))
			mr.Post("/", h.HandleCreate)
			mr.Put("/{id}", h.HandleUpdate)
			mr.Delete("/{id}", h.HandleDelete)
			mr.Post("/{id}/buildings", h.HandleCreateBuilding)
			mr.Put("/{id}/buildings/{bid}", h.HandleUpdateBuilding)
			mr.Delete("/{id}/buildings/{bid}", h.HandleDeleteBuilding)
		})
	})

	return r
}
