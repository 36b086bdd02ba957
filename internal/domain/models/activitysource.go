// internal/domain/models/activitysource.go
package models

import "time"

// Collections written by the mobile app, one document per event,
// each carrying the owning app user's uid.
const (
	CollKicks                 = "kicks"
	CollContractions          = "contractions"
	CollBreathingSessions     = "breathing_sessions"
	CollMoods                 = "moods"
	CollReadChapters          = "read_chapters"
	CollVisualizationSessions = "visualization_sessions"
	CollActivityLogs          = "activity_logs"
	CollAppSessions           = "app_sessions"
)

// EventTimes holds the candidate time fields the mobile app may set on an
// activity document. Different app versions populate different ones.
type EventTimes struct {
	StartTime   FlexTime `bson:"startTime"`
	CreatedAt   FlexTime `bson:"createdAt"`
	Timestamp   FlexTime `bson:"timestamp"`
	CompletedAt FlexTime `bson:"completedAt"`
	Date        FlexTime `bson:"date"`
}

// Resolve returns the first present candidate in priority order:
// startTime, createdAt, timestamp, completedAt, date.
func (e EventTimes) Resolve() (time.Time, bool) {
	for _, c := range []FlexTime{e.StartTime, e.CreatedAt, e.Timestamp, e.CompletedAt, e.Date} {
		if c.Valid {
			return c.Time, true
		}
	}
	return time.Time{}, false
}

// KickEntry is one kick-counting session.
type KickEntry struct {
	ID         DocID   `bson:"_id"`
	UID        string  `bson:"uid"`
	KickCount  FlexInt `bson:"kickCount"`
	EventTimes `bson:",inline"`
}

// ContractionEntry is one timed contraction.
type ContractionEntry struct {
	ID              DocID   `bson:"_id"`
	UID             string  `bson:"uid"`
	DurationSeconds FlexInt `bson:"durationSeconds"`
	EventTimes      `bson:",inline"`
}

// ExerciseSession is a breathing or visualization session. Older app
// builds only wrote a free-text Details field; newer ones write DurationMs.
type ExerciseSession struct {
	ID         DocID    `bson:"_id"`
	UID        string   `bson:"uid"`
	DurationMs *FlexInt `bson:"durationMs,omitempty"`
	Details    string   `bson:"details,omitempty"`
	EventTimes `bson:",inline"`
}

// MoodEntry is one mood check-in.
type MoodEntry struct {
	ID         DocID  `bson:"_id"`
	UID        string `bson:"uid"`
	Emoji      string `bson:"emoji"`
	Emotion    string `bson:"emotion"`
	EventTimes `bson:",inline"`
}

// ChapterRead records that a psychoeducation chapter was read. Chapter is
// the app's chapter key, e.g. "chapter3". Rating is the optional 1-5
// usefulness feedback.
type ChapterRead struct {
	ID         DocID   `bson:"_id"`
	UID        string  `bson:"uid"`
	Chapter    string  `bson:"chapter"`
	Rating     FlexInt `bson:"rating,omitempty"`
	EventTimes `bson:",inline"`
}

// ActivityLogEntry is a row of the shared activity_logs collection.
// Only Visualization rows are read by the dashboard.
type ActivityLogEntry struct {
	ID           DocID    `bson:"_id"`
	UID          string   `bson:"uid"`
	ActivityType string   `bson:"activityType"`
	DurationMs   *FlexInt `bson:"durationMs,omitempty"`
	Details      string   `bson:"details,omitempty"`
	EventTimes   `bson:",inline"`
}

// AsExerciseSession views a log row as a visualization session.
func (a ActivityLogEntry) AsExerciseSession() ExerciseSession {
	return ExerciseSession{
		ID:         a.ID,
		UID:        a.UID,
		DurationMs: a.DurationMs,
		Details:    a.Details,
		EventTimes: a.EventTimes,
	}
}

// App session status values. An absent status counts as online.
const (
	AppSessionOnline  = "online"
	AppSessionOffline = "offline"
)

// AppSession is one foreground session of the mobile app.
type AppSession struct {
	ID              DocID   `bson:"_id"`
	UID             string  `bson:"uid"`
	DurationSeconds FlexInt `bson:"durationSeconds"`
	Status          string  `bson:"status,omitempty"`
	EventTimes      `bson:",inline"`
}

// IsOnline reports whether the session counts toward online time.
func (s AppSession) IsOnline() bool {
	return s.Status == "" || s.Status == AppSessionOnline
}
