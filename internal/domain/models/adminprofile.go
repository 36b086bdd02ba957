// internal/domain/models/adminprofile.go
package models

// Terminology: Identifiers
//   - AdminID / adminID / admin_id: the MongoDB ObjectID (_id) of an admin_users record
//   - UID / uid: the string id of an app user (a mother) owned by the mobile app

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role tags for dashboard staff. The hierarchy is
// viewer < editor < admin < superadmin.
const (
	RoleViewer     = "viewer"
	RoleEditor     = "editor"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Account status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Auth methods an admin can sign in with.
const (
	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google"
)

// AllRoles lists every role, lowest first.
var AllRoles = []string{RoleViewer, RoleEditor, RoleAdmin, RoleSuperAdmin}

// AdminProfile is one staff member of the dashboard.
// Profiles are never hard-deleted; deactivation flips Status to inactive.
type AdminProfile struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	NameCI       string              `bson:"name_ci" json:"-"`
	Email        string              `bson:"email" json:"email"`
	EmailCI      string              `bson:"email_ci" json:"-"`
	Role         string              `bson:"role" json:"role"`
	Status       string              `bson:"status" json:"status"`
	AuthMethod   string              `bson:"auth_method,omitempty" json:"auth_method,omitempty"`
	PasswordHash string              `bson:"password_hash,omitempty" json:"-"`
	InvitedBy    *primitive.ObjectID `bson:"invited_by,omitempty" json:"invited_by,omitempty"`
	LastActive   *time.Time          `bson:"last_active,omitempty" json:"last_active,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the profile may hold a session.
func (p AdminProfile) IsActive() bool {
	return p.Status == StatusActive
}

// IsValidRole reports whether r is one of the four role tags.
func IsValidRole(r string) bool {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case RoleViewer, RoleEditor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// RoleLabel returns a display label for a role tag.
func RoleLabel(r string) string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleEditor:
		return "Editor"
	case RoleViewer:
		return "Viewer"
	}
	return r
}
