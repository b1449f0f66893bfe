// internal/app/features/workorders/routes.go
package workorders

import (
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the work-order API. Every route needs a signed-in user;
// what each user may see and change is decided by the order service.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/summary", h.ServeSummary)
		pr.Get("/export.xlsx", h.ServeExport)
		pr.Patch("/bulk-status", h.HandleBulkStatus)

		pr.Get("/{id}", h.ServeOrder)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Patch("/{id}/status", h.HandleStatus)
		pr.Post("/{id}/images", h.HandleImages)
		pr.Get("/{id}/report.xlsx", h.ServeReport)
	})

	return r
}
