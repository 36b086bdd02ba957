// internal/app/features/useractivity/handler.go
package useractivity

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/activityfeed"
	"github.com/dalemusser/mansahub/internal/app/system/csvutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MsgLoadFailed replaces the timeline when any activity source fails.
const MsgLoadFailed = "Could not load activity for this user."

// UserGetter loads one mother.
type UserGetter interface {
	GetByID(ctx context.Context, uid string) (models.AppUserRow, error)
}

// Aggregator builds the activity feed of one mother.
type Aggregator interface {
	Aggregate(ctx context.Context, uid string) (activityfeed.Feed, error)
}

// Handler serves the per-mother activity page and its CSV log.
type Handler struct {
	Users  UserGetter
	Feed   Aggregator
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
	Loc    *time.Location
}

func NewHandler(users UserGetter, feed Aggregator, errLog *uierrors.ErrorLogger, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Users: users, Feed: feed, ErrLog: errLog, Log: logger, Loc: loc}
}

type statCard struct {
	Label string
	Value string
	Icon  string
}

type timelineRow struct {
	Type    string
	Icon    string
	When    string
	Details string
}

type pageData struct {
	viewdata.BaseVM
	UID       string
	PatientID string
	MOHArea   string
	Language  string
	Education string
	DueDate   string
	Platform  string

	Time     []statCard
	Activity []statCard
	Timeline []timelineRow
	Error    string
}

// loadUser writes the error response itself and returns false when the
// mother cannot be shown.
func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (models.AppUserRow, bool) {
	uid := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	switch {
	case errors.Is(err, appuserstore.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, "app user not found", err, "User not found.", "/app-users")
		return u, false
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load app user failed", err, "Could not load this user.", "/app-users")
		return u, false
	}
	return u, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /app-users/{id}/activity                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeActivity renders stats and the timeline, newest first. A failed
// source leaves the page up with an empty state instead of partial
// figures.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	data := h.page(r, u)
	feed, err := h.Feed.Aggregate(r.Context(), u.ID)
	if err != nil {
		h.logAggregation(u.ID, err)
		data.Error = MsgLoadFailed
		templates.Render(w, r, "user_activity", data)
		return
	}

	data.Time, data.Activity = statCards(feed.Stats)
	data.Timeline = h.timeline(feed.Records)
	templates.Render(w, r, "user_activity", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /app-users/{id}/activity.csv                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeActivityCSV downloads the same timeline as a CSV log.
func (h *Handler) ServeActivityCSV(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	feed, err := h.Feed.Aggregate(r.Context(), u.ID)
	if err != nil {
		h.logAggregation(u.ID, err)
		h.ErrLog.LogServerError(w, r, "activity export failed", err, MsgLoadFailed, "/app-users/"+u.ID+"/activity")
		return
	}

	if err := csvutil.StartDownload(w, csvutil.ActivityLogFilename(u.EffectivePatientID())); err != nil {
		h.Log.Warn("activity export write failed", zap.Error(err))
		return
	}
	if err := csvutil.WriteActivityLog(w, feed.Records, h.Loc); err != nil {
		h.Log.Warn("activity export write failed", zap.Error(err))
	}
}

func (h *Handler) logAggregation(uid string, err error) {
	fields := []zap.Field{zap.String("uid", uid), zap.Error(err)}
	var ae *activityfeed.AggregationError
	if errors.As(err, &ae) {
		fields = append(fields, zap.String("source", ae.Source))
	}
	h.Log.Error("activity aggregation failed", fields...)
}

func (h *Handler) page(r *http.Request, u models.AppUserRow) pageData {
	label := u.EffectivePatientID()
	if label == "" {
		label = u.Label()
	}
	d := pageData{
		BaseVM:    viewdata.NewBaseVM(r, "Activity: "+label, "/app-users"),
		UID:       u.ID,
		PatientID: label,
		MOHArea:   dash(u.Profile.MOHArea),
		Language:  dash(u.Profile.Language),
		Education: dash(u.Profile.Education),
		Platform:  dash(u.Platform),
		DueDate:   "-",
	}
	if u.Profile.DueDate.Valid {
		d.DueDate = u.Profile.DueDate.Time.In(h.Loc).Format("2 Jan 2006")
	}
	return d
}

func statCards(s activityfeed.Stats) (timeCards, activityCards []statCard) {
	timeCards = []statCard{
		{Label: "Total Time", Value: activityfeed.FormatDuration(s.TotalSeconds), Icon: "clock"},
		{Label: "Online", Value: activityfeed.FormatDuration(s.OnlineSeconds), Icon: "wifi"},
		{Label: "Offline", Value: activityfeed.FormatDuration(s.OfflineSeconds), Icon: "wifi-off"},
	}
	count := strconv.Itoa
	activityCards = []statCard{
		{Label: "Kicks", Value: count(s.Kick), Icon: activityfeed.Kick.Icon()},
		{Label: "Breathing", Value: count(s.Breathing), Icon: activityfeed.Breathing.Icon()},
		{Label: "Moods", Value: count(s.Mood), Icon: activityfeed.Mood.Icon()},
		{Label: "Contractions", Value: count(s.Contraction), Icon: activityfeed.Contraction.Icon()},
		{Label: "Chapters", Value: count(s.Psychoeducation), Icon: activityfeed.Psychoeducation.Icon()},
		{Label: "Feedback", Value: count(s.Feedback), Icon: "star"},
		{Label: "Visualizations", Value: count(s.Visualization), Icon: activityfeed.Visualization.Icon()},
	}
	return timeCards, activityCards
}

func (h *Handler) timeline(records []activityfeed.Record) []timelineRow {
	out := make([]timelineRow, 0, len(records))
	for _, rec := range records {
		row := timelineRow{
			Type:    string(rec.Type),
			Icon:    rec.Icon(),
			When:    "Unknown time",
			Details: rec.Details,
		}
		if rec.HasTime {
			row.When = rec.Time.In(h.Loc).Format("2 Jan 2006, 3:04 PM")
		}
		out = append(out, row)
	}
	return out
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
