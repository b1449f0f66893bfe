// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/confinedspace/internal/app/policy/orderpolicy"
	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit trail (typically at "/audit"). Admins only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(orderpolicy.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Get("/failed-logins", h.ServeFailedLogins)
	})

	return r
}
