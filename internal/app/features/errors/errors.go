// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Heading string
	Message string
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "", "/")
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	RenderUnauthorized(w, r, "/login")
}

// RenderForbidden shows the access denied page with msg, or the
// standard message when msg is empty.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = "You do not have permission to view this page."
	}
	if backURL == "" {
		backURL = "/"
	}
	renderStatus(w, r, http.StatusForbidden, "Access denied", msg, backURL)
}

// RenderUnauthorized shows the sign in required page.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	renderStatus(w, r, http.StatusUnauthorized, "Sign in required", "Please sign in to continue.", backURL)
}

// RenderNotFound shows the not found page.
func RenderNotFound(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = "We couldn't find what you were looking for."
	}
	renderStatus(w, r, http.StatusNotFound, "Not found", msg, backURL)
}

func renderStatus(w http.ResponseWriter, r *http.Request, status int, heading, msg, backURL string) {
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, heading, backURL),
		Heading: heading,
		Message: msg,
	}
	if backURL != "" {
		data.BackURL = backURL
	}
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}
