// internal/app/features/faqs/routes.go
package faqs

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Get("/manage", h.ServeManage)
	r.Post("/manage", h.HandleSave)
	r.Post("/{id}/delete", h.HandleDelete)
	return r
}
