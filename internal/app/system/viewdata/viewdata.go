// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"
	"sync/atomic"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// Branding is what the layout reads from app_config.
type Branding struct {
	AppName        string
	PrimaryColor   string
	SecondaryColor string
	// TimeoutMinutes is shown in the idle-expiry notice.
	TimeoutMinutes int
}

// BrandingSource returns the current app configuration. Bootstrap sets
// it to the config watcher so every page sees settings changes without
// a restart.
type BrandingSource func() models.AppConfig

var brandingSource atomic.Pointer[BrandingSource]

// SetBrandingSource installs the app_config source. Call it once at startup.
func SetBrandingSource(src BrandingSource) {
	if src == nil {
		brandingSource.Store(nil)
		return
	}
	brandingSource.Store(&src)
}

// CurrentBranding returns the branding in effect, falling back to the
// defaults when no source is installed.
func CurrentBranding() Branding {
	cfg := models.DefaultAppConfig()
	if src := brandingSource.Load(); src != nil {
		cfg = (*src)()
	}
	b := Branding{
		AppName:        cfg.AppName,
		PrimaryColor:   cfg.PrimaryColor,
		SecondaryColor: cfg.SecondaryColor,
		TimeoutMinutes: int(cfg.SessionTimeout),
	}
	if b.AppName == "" {
		b.AppName = models.DefaultAppName
	}
	if b.TimeoutMinutes <= 0 {
		b.TimeoutMinutes = models.DefaultSessionTimeoutMinutes
	}
	return b
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back")}
type BaseVM struct {
	Branding

	// User context (from auth middleware)
	IsLoggedIn bool
	Role       string
	RoleLabel  string
	UserName   string

	// Navigation gates for the sidebar.
	CanEditContent  bool
	CanManageTeam   bool
	CanEditSettings bool

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	CSRFToken string

	// Flash is a one-line notice shown above the page content.
	Flash string
}

// NewBaseVM creates a fully populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	role, name, _, signedIn := authz.UserCtx(r)
	vm := BaseVM{
		Branding:    CurrentBranding(),
		IsLoggedIn:  signedIn,
		UserName:    name,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if signedIn {
		vm.Role = role
		vm.RoleLabel = models.RoleLabel(role)
		vm.CanEditContent = adminpolicy.CanEditContent(role)
		vm.CanManageTeam = adminpolicy.CanInvite(role)
		vm.CanEditSettings = adminpolicy.CanEditSettings(role)
	}
	return vm
}
