// internal/app/features/team/routes.go
package team

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the admin team pages. Every signed-in staff member may
// see the list; inviting needs an admin role, and each mutation is
// checked against the admin policy.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		r.Get("/new", h.ServeNew)
		r.Post("/new", h.HandleCreate)
	})
	r.Get("/{id}/edit", h.ServeEdit)
	r.Post("/{id}/edit", h.HandleEdit)
	r.Post("/{id}/deactivate", h.HandleDeactivate)
	return r
}
