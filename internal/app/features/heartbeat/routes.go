// internal/app/features/heartbeat/routes.go
package heartbeat

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for heartbeat endpoints. Idle-expired
// sessions never reach the handler: RequireSignedIn answers them with a
// 401 carrying X-Session-Expired.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.ServeHeartbeat)
	return r
}
