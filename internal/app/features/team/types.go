// internal/app/features/team/types.go
package team

import (
	"github.com/dalemusser/mansahub/internal/app/system/formutil"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
)

type memberRow struct {
	ID            string
	Name          string
	Email         string
	Role          string
	RoleLabel     string
	Active        bool
	LastActive    string
	CanEdit       bool
	CanDeactivate bool
}

type listData struct {
	viewdata.BaseVM
	Members   []memberRow
	CanInvite bool
}

type roleOption struct {
	Value    string
	Label    string
	Selected bool
}

func roleOptions(roles []string, selected string) []roleOption {
	out := make([]roleOption, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleOption{Value: r, Label: models.RoleLabel(r), Selected: r == selected})
	}
	return out
}

type inviteData struct {
	formutil.Base
	Name  string
	Email string
	Role  string
	Roles []roleOption
}

type editData struct {
	formutil.Base
	ID    string
	Name  string
	Email string
	Role  string
	Roles []roleOption
}
