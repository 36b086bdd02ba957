// internal/app/features/useractivity/templates.go
package useractivity

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "useractivity",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
