// internal/app/features/analytics/routes.go
package analytics

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeAnalytics)
	return r
}
