// internal/app/features/team/list.go
package team

import (
	"context"
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList renders every staff member. Action links are shown only where
// the policy would accept them.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	admins, err := h.Admins.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list admins failed", err, "Could not load the team.", "/")
		return
	}

	templates.Render(w, r, "team_list", listData{
		BaseVM:    viewdata.NewBaseVM(r, "Admin Team", "/"),
		Members:   h.rows(authz.Actor(r), admins),
		CanInvite: adminpolicy.CanInvite(authz.Actor(r).Role),
	})
}

func (h *Handler) rows(actor adminpolicy.Actor, admins []models.AdminProfile) []memberRow {
	now := h.now()
	out := make([]memberRow, 0, len(admins))
	for _, a := range admins {
		target := adminpolicy.Target{ID: a.ID.Hex(), Role: a.Role}
		row := memberRow{
			ID:         a.ID.Hex(),
			Name:       a.Name,
			Email:      a.Email,
			Role:       a.Role,
			RoleLabel:  models.RoleLabel(a.Role),
			Active:     a.IsActive(),
			LastActive: "Never",
			CanEdit:    adminpolicy.CheckEdit(actor, target, a.Role) == nil,
		}
		row.CanDeactivate = row.Active && adminpolicy.CheckDeactivate(actor, target) == nil
		if a.LastActive != nil {
			row.LastActive = usage.TimeAgo(*a.LastActive, now)
		}
		out = append(out, row)
	}
	return out
}
