// internal/app/features/settings/routes.go
package settings

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves the settings page to every signed-in staff member;
// saving is checked against the settings policy in the handler.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeSettings)
	r.Post("/", h.HandleSettings)
	return r
}
