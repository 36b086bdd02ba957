// internal/app/features/analytics/handler.go
package analytics

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

// Chart ranges selectable with ?range=.
const (
	RangeWeek  = "week"
	RangeMonth = "month"
)

// UserSource reads the app-user fields the figures are derived from.
type UserSource interface {
	Summaries(ctx context.Context) ([]models.AppUser, error)
}

type Handler struct {
	Users  UserSource
	ErrLog *uierrors.ErrorLogger
	Loc    *time.Location

	now func() time.Time
}

func NewHandler(users UserSource, errLog *uierrors.ErrorLogger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Users: users, ErrLog: errLog, Loc: loc, now: time.Now}
}

type pageData struct {
	viewdata.BaseVM
	usage.Summary
	Range      string
	ChartTitle string
	Chart      []usage.Bar
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /analytics                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.Summaries(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load analytics failed", err, "Could not load analytics.", "/")
		return
	}

	templates.Render(w, r, "analytics", h.build(r, users, query.Get(r, "range")))
}

func (h *Handler) build(r *http.Request, users []models.AppUser, rng string) pageData {
	s := usage.Summarize(users, h.now().In(h.Loc))
	d := pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Analytics", "/"),
		Summary: s,
		Range:   RangeWeek,
	}
	if rng == RangeMonth {
		d.Range = RangeMonth
		d.ChartTitle = "Sign-ups, last 4 weeks"
		d.Chart = s.WeeklyBars()
	} else {
		d.ChartTitle = "Sign-ups, last 7 days"
		d.Chart = s.DailyBars()
	}
	return d
}
