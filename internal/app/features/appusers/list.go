// internal/app/features/appusers/list.go
package appusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/paging"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

type userRow struct {
	ID         string
	PatientID  string
	MOHArea    string
	Language   string
	Platform   string
	DueDate    string
	Joined     string
	LastActive string
}

type listData struct {
	viewdata.BaseVM
	Query     string
	Users     []userRow
	Page      paging.Result
	Range     paging.Range
	CanAdd    bool
	CanDelete bool
	Notice    string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /app-users                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList shows the mothers newest first, a page at a time. ?q= narrows
// by patient id or MOH area; ?start= is the 1-based row to begin at.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Get(r, "q")
	start := paging.ParseStart(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.List(ctx, appuserstore.ListOptions{
		Query: q,
		Limit: paging.LimitPlusOne(),
		Skip:  paging.Skip(start),
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list app users failed", err, "Failed to load mothers list.", "/")
		return
	}

	page := paging.TrimPage(&users, start)

	role := authz.Actor(r).Role
	data := listData{
		BaseVM:    viewdata.NewBaseVM(r, "Mothers", "/"),
		Query:     q,
		Users:     h.rows(users),
		Page:      page,
		Range:     paging.ComputeRange(start, len(users)),
		CanAdd:    adminpolicy.CanAddAppUser(role),
		CanDelete: adminpolicy.CanDeleteAppUser(role),
	}
	switch query.Get(r, "done") {
	case "created":
		data.Notice = "Mother account created successfully."
	case "deleted":
		data.Notice = "User removed successfully."
	}
	templates.Render(w, r, "appusers_list", data)
}

func (h *Handler) rows(users []models.AppUserRow) []userRow {
	now := h.now()
	out := make([]userRow, 0, len(users))
	for _, u := range users {
		row := userRow{
			ID:         u.ID,
			PatientID:  u.EffectivePatientID(),
			MOHArea:    orDash(u.Profile.MOHArea),
			Language:   orDash(u.Profile.Language),
			Platform:   orDash(u.Platform),
			DueDate:    "-",
			Joined:     "-",
			LastActive: "-",
		}
		if row.PatientID == "" {
			row.PatientID = u.Label()
		}
		if u.Profile.DueDate.Valid {
			row.DueDate = u.Profile.DueDate.Time.In(h.Loc).Format("2 Jan 2006")
		}
		if u.CreatedAt.Valid {
			row.Joined = u.CreatedAt.Time.In(h.Loc).Format("2 Jan 2006")
		}
		if u.LastActive.Valid {
			row.LastActive = usage.TimeAgo(u.LastActive.Time, now)
		}
		out = append(out, row)
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
