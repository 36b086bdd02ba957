// internal/domain/models/appuser.go
package models

import "time"

// Platform values recorded on app users.
const (
	PlatformIOS      = "ios"
	PlatformAndroid  = "android"
	PlatformWebEntry = "Web Admin Entry"
)

// AppUser is a registered mother. The document is owned by the mobile
// app; the dashboard reads it, adds web-entered users, and soft-deletes.
type AppUser struct {
	ID           string     `bson:"_id" json:"id"`
	PatientID    string     `bson:"patientid" json:"patientid"`
	DisplayName  string     `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Username     string     `bson:"username,omitempty" json:"username,omitempty"`
	Email        string     `bson:"email,omitempty" json:"email,omitempty"`
	Platform     string     `bson:"platform,omitempty" json:"platform,omitempty"`
	PasswordHash string     `bson:"password_hash,omitempty" json:"-"`
	CreatedAt    FlexTime   `bson:"createdAt" json:"-"`
	LastActive   FlexTime   `bson:"lastActive" json:"-"`
	DeletedAt    *time.Time `bson:"deletedAt,omitempty" json:"-"`
	DeletedBy    string     `bson:"deletedBy,omitempty" json:"-"`
}

// Label returns the best human label for the user.
func (u AppUser) Label() string {
	switch {
	case u.PatientID != "":
		return u.PatientID
	case u.Username != "":
		return u.Username
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	}
	return "New User"
}

// AppUserProfile is the nested profile of an app user, keyed by the same id.
type AppUserProfile struct {
	ID             string   `bson:"_id" json:"id"`
	PatientID      string   `bson:"patientid,omitempty" json:"patientid,omitempty"`
	MOHArea        string   `bson:"MOHArea,omitempty" json:"MOHArea,omitempty"`
	DueDate        FlexTime `bson:"duedate" json:"-"`
	Education      string   `bson:"education,omitempty" json:"education,omitempty"`
	Language       string   `bson:"language,omitempty" json:"language,omitempty"`
	CuddlesID      int64    `bson:"cuddles_id,omitempty" json:"cuddles_id,omitempty"`
	Username       string   `bson:"username,omitempty" json:"username,omitempty"`
	RegisteredDate FlexTime `bson:"registeredDate" json:"-"`
	UpdatedAt      FlexTime `bson:"updatedAt" json:"-"`
}

// AppUserRow is an app user merged with its profile for list views.
type AppUserRow struct {
	AppUser
	Profile AppUserProfile
}

// PatientID prefers the root document, falling back to the profile.
func (r AppUserRow) EffectivePatientID() string {
	if r.AppUser.PatientID != "" {
		return r.AppUser.PatientID
	}
	return r.Profile.PatientID
}
