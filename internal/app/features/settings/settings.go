// internal/app/features/settings/settings.go
package settings

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const (
	MsgSaved          = "Your settings have been updated successfully."
	MsgUnchanged      = "No changes to save."
	MsgAppNameMissing = "App name is required."
	MsgAppNameLength  = "App name must be 60 characters or fewer."
	MsgBadColor       = "Colors must be hex values such as #D88FA0."
	MsgBadTimeout     = "Please choose a valid session timeout."
	MsgLoadFailed     = "Failed to load settings."
)

const maxAppNameLength = 60

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type timeoutOption struct {
	Minutes  int
	Label    string
	Selected bool
}

type settingsData struct {
	formutil.Base
	AppName        string
	PrimaryColor   string
	SecondaryColor string
	Timeouts       []timeoutOption
	LastUpdated    string
	CanEdit        bool
	Notice         string
}

func timeoutOptions(selected int) []timeoutOption {
	out := make([]timeoutOption, 0, len(models.SessionTimeoutChoices))
	for _, m := range models.SessionTimeoutChoices {
		label := strconv.Itoa(m) + " minutes"
		if m >= 60 && m%60 == 0 {
			label = strconv.Itoa(m/60) + " hour"
			if m > 60 {
				label += "s"
			}
		}
		out = append(out, timeoutOption{Minutes: m, Label: label, Selected: m == selected})
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /settings                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSettings shows the app settings. Only admins get an editable form.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cfg, err := h.Config.Get(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load settings failed", err, MsgLoadFailed, "/")
		return
	}

	data := h.fromConfig(cfg)
	data.CanEdit = adminpolicy.CanEditSettings(authz.Actor(r).Role)
	switch query.Get(r, "done") {
	case "saved":
		data.Notice = MsgSaved
	case "unchanged":
		data.Notice = MsgUnchanged
	}
	h.render(w, r, data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /settings                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSettings saves the settings. A new session timeout reaches the
// watchdog through the Notifier without a restart.
func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	_, name, actorID, _ := authz.UserCtx(r)

	if err := adminpolicy.CheckEditSettings(authz.Actor(r)); err != nil {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "save settings", adminpolicy.MsgNotAllowedSettings)
		h.ErrLog.LogForbidden(w, r, "save settings denied", err, adminpolicy.MsgNotAllowedSettings, "/settings")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/settings")
		return
	}

	minutes, _ := strconv.Atoi(formutil.Value(r, "session_timeout"))
	data := settingsData{
		AppName:        formutil.Value(r, "app_name"),
		PrimaryColor:   strings.ToUpper(formutil.Value(r, "primary_color")),
		SecondaryColor: strings.ToUpper(formutil.Value(r, "secondary_color")),
		Timeouts:       timeoutOptions(minutes),
		CanEdit:        true,
	}

	if msg := validate(data.AppName, data.PrimaryColor, data.SecondaryColor, minutes); msg != "" {
		h.reRender(w, r, data, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	current, err := h.Config.Get(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load settings failed", err, MsgLoadFailed, "/settings")
		return
	}

	next := current
	next.AppName = data.AppName
	next.PrimaryColor = data.PrimaryColor
	next.SecondaryColor = data.SecondaryColor
	next.SessionTimeout = models.TimeoutMinutes(minutes)

	changed := changedFields(current, next)
	if len(changed) == 0 {
		http.Redirect(w, r, "/settings?done=unchanged", http.StatusSeeOther)
		return
	}

	saved, err := h.Config.Save(ctx, next, actorID, name)
	if err != nil {
		h.Log.Error("save settings failed", zap.Error(err))
		h.reRender(w, r, data, "Failed to save settings. Please try again.")
		return
	}

	h.Watcher.Notify(r.Context(), saved)
	h.AuditLog.SettingsUpdated(r.Context(), r, actorID, strings.Join(changed, ","))
	h.Log.Info("settings saved",
		zap.Strings("fields", changed),
		zap.Int("session_timeout_minutes", minutes),
		zap.String("by", actorID.Hex()))
	http.Redirect(w, r, "/settings?done=saved", http.StatusSeeOther)
}

func validate(appName, primary, secondary string, minutes int) string {
	switch {
	case appName == "":
		return MsgAppNameMissing
	case len([]rune(appName)) > maxAppNameLength:
		return MsgAppNameLength
	case primary != "" && !hexColor.MatchString(primary):
		return MsgBadColor
	case secondary != "" && !hexColor.MatchString(secondary):
		return MsgBadColor
	}
	for _, m := range models.SessionTimeoutChoices {
		if m == minutes {
			return ""
		}
	}
	return MsgBadTimeout
}

// changedFields names the settings that differ, in form order.
func changedFields(prev, next models.AppConfig) []string {
	var out []string
	if prev.AppName != next.AppName {
		out = append(out, "app_name")
	}
	if prev.PrimaryColor != next.PrimaryColor {
		out = append(out, "primary_color")
	}
	if prev.SecondaryColor != next.SecondaryColor {
		out = append(out, "secondary_color")
	}
	if prev.SessionTimeout != next.SessionTimeout {
		out = append(out, "session_timeout")
	}
	return out
}

func (h *Handler) fromConfig(cfg models.AppConfig) settingsData {
	data := settingsData{
		AppName:        cfg.AppName,
		PrimaryColor:   cfg.PrimaryColor,
		SecondaryColor: cfg.SecondaryColor,
		Timeouts:       timeoutOptions(int(cfg.SessionTimeout)),
	}
	if cfg.UpdatedAt != nil {
		data.LastUpdated = usage.TimeAgo(*cfg.UpdatedAt, h.now())
		if cfg.UpdatedByName != "" {
			data.LastUpdated += " by " + cfg.UpdatedByName
		}
	}
	return data
}

func (h *Handler) reRender(w http.ResponseWriter, r *http.Request, data settingsData, msg string) {
	data.SetError(msg)
	h.render(w, r, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data settingsData) {
	formutil.SetBase(&data.Base, r, "Settings", "/")
	templates.Render(w, r, "settings", data)
}
