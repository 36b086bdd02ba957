// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation or a write fails, the form is
// re-rendered with:
//   - the user's previously entered values (echoed back)
//   - an error message explaining what went wrong
//   - all the context data needed for the form (role choices, etc.)
//
// Example usage:
//
//	type inviteData struct {
//		formutil.Base
//		Name  string
//		Email string
//		Roles []roleOption
//	}
//
//	data := inviteData{Name: name, Email: email}
//	formutil.SetBase(&data.Base, r, "Invite Team Member", "/users")
//	data.SetError("Email is already registered.")
//	templates.Render(w, r, "team_invite", data)
package formutil

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
)

// Base contains common fields for form pages that can be embedded in form data structs.
type Base struct {
	viewdata.BaseVM
	Error template.HTML
}

// SetBase populates the common fields from the request context.
func SetBase(b *Base, r *http.Request, title, backDefault string) {
	b.BaseVM = viewdata.NewBaseVM(r, title, backDefault)
}

// SetError sets a plain-text error message, HTML-escaped.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(template.HTMLEscapeString(msg))
}

// HasError reports whether an error message is set.
func (b *Base) HasError() bool {
	return b.Error != ""
}

// Value returns the trimmed form value for key. Call after ParseForm.
func Value(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
