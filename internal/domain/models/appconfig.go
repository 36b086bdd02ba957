// internal/domain/models/appconfig.go
package models

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppConfigID is the _id of the singleton general config document.
const AppConfigID = "general"

// DefaultAppName is shown when no config has been saved.
const DefaultAppName = "MAnSA"

// DefaultSessionTimeoutMinutes applies until a config value is available.
const DefaultSessionTimeoutMinutes = 30

// SessionTimeoutChoices are the values offered on the settings page.
var SessionTimeoutChoices = []int{15, 30, 60, 120}

// AppConfig is the app-wide settings document (app_config/general).
type AppConfig struct {
	ID             string         `bson:"_id" json:"-"`
	AppName        string         `bson:"appName,omitempty" json:"appName,omitempty"`
	PrimaryColor   string         `bson:"primaryColor,omitempty" json:"primaryColor,omitempty"`
	SecondaryColor string         `bson:"secondaryColor,omitempty" json:"secondaryColor,omitempty"`
	SessionTimeout TimeoutMinutes `bson:"sessionTimeout" json:"sessionTimeout"`

	UpdatedAt     *time.Time          `bson:"updatedAt,omitempty" json:"-"`
	UpdatedByID   *primitive.ObjectID `bson:"updatedById,omitempty" json:"-"`
	UpdatedByName string              `bson:"updatedBy,omitempty" json:"-"`
}

// DefaultAppConfig is used when the document does not exist.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		ID:             AppConfigID,
		AppName:        DefaultAppName,
		SessionTimeout: DefaultSessionTimeoutMinutes,
	}
}

// Timeout returns the idle timeout as a duration.
func (c AppConfig) Timeout() time.Duration {
	return c.SessionTimeout.Duration()
}

// TimeoutMinutes is a session timeout in minutes. The stored value may be
// a string ("30") or a number; anything unparseable or non-positive
// decodes to the 30 minute default.
type TimeoutMinutes int

// Duration converts minutes to a duration, applying the default when unset.
func (m TimeoutMinutes) Duration() time.Duration {
	if m <= 0 {
		return DefaultSessionTimeoutMinutes * time.Minute
	}
	return time.Duration(m) * time.Minute
}

// ParseTimeoutMinutes parses a form or stored value.
func ParseTimeoutMinutes(s string) TimeoutMinutes {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return DefaultSessionTimeoutMinutes
	}
	return TimeoutMinutes(n)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (m *TimeoutMinutes) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	var n int
	switch t {
	case bsontype.String:
		*m = ParseTimeoutMinutes(rv.StringValue())
		return nil
	case bsontype.Int32:
		n = int(rv.Int32())
	case bsontype.Int64:
		n = int(rv.Int64())
	case bsontype.Double:
		n = int(rv.Double())
	}
	if n <= 0 {
		n = DefaultSessionTimeoutMinutes
	}
	*m = TimeoutMinutes(n)
	return nil
}

// MarshalBSONValue stores the value as a string, matching what the
// mobile app and earlier dashboards write.
func (m TimeoutMinutes) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(strconv.Itoa(int(m)))
}
