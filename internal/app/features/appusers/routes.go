// internal/app/features/appusers/routes.go
package appusers

import (
	"github.com/dalemusser/mansahub/internal/app/features/useractivity"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the mothers registry and the per-mother activity pages.
// Adding and deleting are checked against the admin policy in the
// handlers.
func Routes(h *Handler, activity *useractivity.Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/export.csv", h.ServeExport)
	r.Get("/new", h.ServeNew)
	r.Post("/new", h.HandleCreate)
	r.Post("/{id}/delete", h.HandleDelete)
	r.Get("/{id}/activity", activity.ServeActivity)
	r.Get("/{id}/activity.csv", activity.ServeActivityCSV)
	return r
}
