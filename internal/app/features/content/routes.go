// internal/app/features/content/routes.go
package content

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/{id}/delete", h.HandleDelete)
	return r
}
