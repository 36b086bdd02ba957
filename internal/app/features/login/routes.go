// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /login and the password reset pages. Signed-in staff are
// sent to the dashboard.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAnonymous)
	r.Get("/", h.ServeLogin)
	r.Post("/", h.HandleLoginPost)
	r.Get("/forgot", h.ServeForgot)
	r.Post("/forgot", h.HandleForgotPost)
	r.Get("/reset", h.ServeReset)
	r.Post("/reset", h.HandleResetPost)
	return r
}
