// internal/app/features/authgoogle/routes.go
package authgoogle

import (
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for Google OAuth endpoints. Only anonymous
// visitors start the flow.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAnonymous)

	// GET /auth/google - start the OAuth flow
	r.Get("/", h.ServeLogin)

	// GET /auth/google/callback - exchange the code and sign in
	r.Get("/callback", h.ServeCallback)

	return r
}
