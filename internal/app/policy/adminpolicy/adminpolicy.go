// Package adminpolicy decides what a staff member may do to other staff
// members, to app users, to content and to settings.
//
// Authorization rules:
//   - Superadmins can assign any role and manage anyone
//   - Admins can assign admin, editor and viewer, and manage editors and viewers
//   - Editors and viewers cannot assign roles or manage staff
//   - Only admins and superadmins can invite staff, delete app users, or save settings
//   - Editors and above can edit content and add app users; viewers are read-only
//   - Nobody can deactivate their own account
//
// Every mutating handler calls one of the Check functions before writing.
package adminpolicy

import (
	"strings"

	"github.com/dalemusser/mansahub/internal/domain/models"
)

// User-facing rejection messages.
const (
	MsgNotAllowedRole     = "You are not allowed to assign that role."
	MsgNotAllowedManage   = "You do not have permission to manage this team member."
	MsgNotAllowedInvite   = "Only admins can invite team members."
	MsgNotAllowedDelete   = "Only admins can delete users."
	MsgNotAllowedAddUser  = "Viewers cannot add users."
	MsgNotAllowedContent  = "Viewers cannot edit content."
	MsgNotAllowedSettings = "Only admins can change settings."
	MsgSelfDeactivate     = "You cannot deactivate your own account."
	MsgInvalidRole        = "Please choose a valid role."
)

// AuthorizationError is returned when an action is rejected by policy.
// Message is safe to show to the user.
type AuthorizationError struct {
	Action  string
	Message string
}

func (e *AuthorizationError) Error() string {
	return "adminpolicy: " + e.Action + ": " + e.Message
}

func deny(action, msg string) error {
	return &AuthorizationError{Action: action, Message: msg}
}

// Actor is the signed-in staff member attempting an action.
type Actor struct {
	ID   string
	Role string
}

// Target is the staff member being acted on.
type Target struct {
	ID   string
	Role string
}

func norm(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func isAdminOrAbove(role string) bool {
	r := norm(role)
	return r == models.RoleAdmin || r == models.RoleSuperAdmin
}

// CanAssignRole reports whether acting may grant target.
func CanAssignRole(acting, target string) bool {
	if !models.IsValidRole(target) {
		return false
	}
	switch norm(acting) {
	case models.RoleSuperAdmin:
		return true
	case models.RoleAdmin:
		return norm(target) != models.RoleSuperAdmin
	}
	return false
}

// AssignableRoles lists the roles acting may grant, lowest first.
func AssignableRoles(acting string) []string {
	var out []string
	for _, r := range models.AllRoles {
		if CanAssignRole(acting, r) {
			out = append(out, r)
		}
	}
	return out
}

// CanManageTarget reports whether acting may edit or deactivate a staff
// member holding target. Admin-level targets need a superadmin.
func CanManageTarget(acting, target string) bool {
	if isAdminOrAbove(target) {
		return norm(acting) == models.RoleSuperAdmin
	}
	return isAdminOrAbove(acting)
}

// CanDeleteAppUser reports whether acting may soft-delete an app user.
func CanDeleteAppUser(acting string) bool { return isAdminOrAbove(acting) }

// CanAddAppUser reports whether acting may register a mother from the
// dashboard.
func CanAddAppUser(acting string) bool { return CanEditContent(acting) }

// CanInvite reports whether acting may invite staff.
func CanInvite(acting string) bool { return isAdminOrAbove(acting) }

// CanEditContent reports whether acting may create, edit or delete
// content and FAQs.
func CanEditContent(acting string) bool {
	switch norm(acting) {
	case models.RoleEditor, models.RoleAdmin, models.RoleSuperAdmin:
		return true
	}
	return false
}

// CanEditSettings reports whether acting may save app settings.
func CanEditSettings(acting string) bool { return isAdminOrAbove(acting) }

// CheckInvite validates inviting a new staff member with role.
func CheckInvite(a Actor, role string) error {
	if !CanInvite(a.Role) {
		return deny("invite", MsgNotAllowedInvite)
	}
	if !models.IsValidRole(role) {
		return deny("invite", MsgInvalidRole)
	}
	if !CanAssignRole(a.Role, role) {
		return deny("invite", MsgNotAllowedRole)
	}
	return nil
}

// CheckEdit validates changing t's role to newRole. Pass t.Role as newRole
// for a name-only edit.
func CheckEdit(a Actor, t Target, newRole string) error {
	if !CanManageTarget(a.Role, t.Role) {
		return deny("edit", MsgNotAllowedManage)
	}
	if !models.IsValidRole(newRole) {
		return deny("edit", MsgInvalidRole)
	}
	if norm(newRole) != norm(t.Role) && !CanAssignRole(a.Role, newRole) {
		return deny("edit", MsgNotAllowedRole)
	}
	return nil
}

// CheckDeactivate validates deactivating t. Self-deactivation is always
// rejected, whatever the role.
func CheckDeactivate(a Actor, t Target) error {
	if a.ID != "" && a.ID == t.ID {
		return deny("deactivate", MsgSelfDeactivate)
	}
	if !CanManageTarget(a.Role, t.Role) {
		return deny("deactivate", MsgNotAllowedManage)
	}
	return nil
}

// CheckDeleteAppUser validates soft-deleting an app user.
func CheckDeleteAppUser(a Actor) error {
	if !CanDeleteAppUser(a.Role) {
		return deny("delete app user", MsgNotAllowedDelete)
	}
	return nil
}

// CheckAddAppUser validates registering an app user.
func CheckAddAppUser(a Actor) error {
	if !CanAddAppUser(a.Role) {
		return deny("add app user", MsgNotAllowedAddUser)
	}
	return nil
}

// CheckEditContent validates any content or FAQ mutation.
func CheckEditContent(a Actor) error {
	if !CanEditContent(a.Role) {
		return deny("edit content", MsgNotAllowedContent)
	}
	return nil
}

// CheckEditSettings validates saving app settings.
func CheckEditSettings(a Actor) error {
	if !CanEditSettings(a.Role) {
		return deny("edit settings", MsgNotAllowedSettings)
	}
	return nil
}

// Deactivation is the logical state a deactivated profile is left in.
// Profiles are never hard-deleted.
type Deactivation struct {
	Status string
	Role   string
}

// DeactivatedState returns status inactive and role viewer.
func DeactivatedState() Deactivation {
	return Deactivation{Status: models.StatusInactive, Role: models.RoleViewer}
}
