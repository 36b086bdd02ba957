// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always means a signed-in
// user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed id in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// Actor returns the signed-in user as a policy actor. The zero Actor has
// no role and is denied everything.
func Actor(r *http.Request) adminpolicy.Actor {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return adminpolicy.Actor{}
	}
	return adminpolicy.Actor{ID: id.Hex(), Role: role}
}

// IsSuperAdmin reports whether the current request's user is a superadmin.
func IsSuperAdmin(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && (user.IsSuperAdmin || strings.EqualFold(user.Role, models.RoleSuperAdmin))
}

// IsAdmin reports whether the current request's user is an admin.
// Superadmins count as admins.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == models.RoleAdmin || role == models.RoleSuperAdmin)
}

// IsAdminOnly reports whether the user is an admin but not a superadmin.
func IsAdminOnly(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// CanEditContent reports whether the user may change content and FAQs.
func CanEditContent(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && adminpolicy.CanEditContent(role)
}
