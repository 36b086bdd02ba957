// internal/app/features/appusers/new.go
package appusers

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/authutil"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// MsgRequiredFields is shown when a required field of the add form is
// empty.
const MsgRequiredFields = "Please fill in all required fields."

// Choices offered by the add form. Values are stored as shown, matching
// what the mobile app writes.
var (
	EducationLevels = []string{"O/L", "A/L", "Degree", "Other"}
	Languages       = []string{"English", "Sinhala", "Tamil"}
)

type option struct {
	Value    string
	Selected bool
}

func options(values []string, selected string) []option {
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: v, Selected: v == selected}
	}
	return out
}

func oneOf(v string, values []string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

type newData struct {
	formutil.Base
	PatientID string
	MOHArea   string
	DueDate   string
	Education []option
	Languages []option
	education string
	language  string
}

func (d *newData) fill() {
	d.Education = options(EducationLevels, d.education)
	d.Languages = options(Languages, d.language)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /app-users/new                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if err := adminpolicy.CheckAddAppUser(authz.Actor(r)); err != nil {
		h.ErrLog.LogForbidden(w, r, "add app user form denied", err, adminpolicy.MsgNotAllowedAddUser, "/app-users")
		return
	}
	data := newData{language: "English"}
	data.fill()
	formutil.SetBase(&data.Base, r, "Add New Mother", "/app-users")
	templates.Render(w, r, "appusers_new", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /app-users/new                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	if err := adminpolicy.CheckAddAppUser(authz.Actor(r)); err != nil {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "add app user", adminpolicy.MsgNotAllowedAddUser)
		h.ErrLog.LogForbidden(w, r, "add app user denied", err, adminpolicy.MsgNotAllowedAddUser, "/app-users")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/app-users")
		return
	}

	data := newData{
		PatientID: formutil.Value(r, "patient_id"),
		MOHArea:   formutil.Value(r, "moh_area"),
		DueDate:   formutil.Value(r, "due_date"),
		education: formutil.Value(r, "education"),
		language:  formutil.Value(r, "language"),
	}
	password := r.PostFormValue("password")

	if data.PatientID == "" || password == "" || data.MOHArea == "" || data.DueDate == "" {
		h.reRenderNew(w, r, data, MsgRequiredFields)
		return
	}
	due, err := time.ParseInLocation("2006-01-02", data.DueDate, h.Loc)
	if err != nil {
		h.reRenderNew(w, r, data, "Please enter a valid due date.")
		return
	}
	if data.education != "" && !oneOf(data.education, EducationLevels) {
		h.reRenderNew(w, r, data, "Please choose an education level from the list.")
		return
	}
	if !oneOf(data.language, Languages) {
		data.language = "English"
	}
	if err := authutil.ValidatePassword(password); err != nil {
		h.reRenderNew(w, r, data, err.Error())
		return
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Could not create the account.", "/app-users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	row, err := h.Users.Create(ctx, appuserstore.NewAppUser{
		PatientID:    data.PatientID,
		PasswordHash: hash,
		MOHArea:      data.MOHArea,
		Education:    data.education,
		Language:     data.language,
		DueDate:      due.UTC(),
	})
	if err != nil {
		if errors.Is(err, appuserstore.ErrDuplicatePatientID) {
			h.reRenderNew(w, r, data, appuserstore.ErrDuplicatePatientID.Error())
			return
		}
		werr := uierrors.NewTransientWriteError("create app user", err, "")
		h.Log.Error("create app user failed", zap.Error(werr), zap.String("patient_id", data.PatientID))
		h.reRenderNew(w, r, data, uierrors.WriteNotice(werr))
		return
	}

	h.AuditLog.AppUserCreated(r.Context(), r, actorID, row.ID, row.PatientID)
	http.Redirect(w, r, "/app-users?done=created", http.StatusSeeOther)
}

func (h *Handler) reRenderNew(w http.ResponseWriter, r *http.Request, data newData, msg string) {
	data.fill()
	formutil.SetBase(&data.Base, r, "Add New Mother", "/app-users")
	data.SetError(msg)
	templates.Render(w, r, "appusers_new", data)
}
