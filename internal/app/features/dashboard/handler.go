// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/usage"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	recentJoinsLimit   = 5
	recentContentLimit = 3
)

// UserSource reads app users.
type UserSource interface {
	Summaries(ctx context.Context) ([]models.AppUser, error)
	Recent(ctx context.Context, n int64) ([]models.AppUser, error)
}

// ContentSource reads app content.
type ContentSource interface {
	RecentlyUpdated(ctx context.Context, n int64) ([]models.AppContent, error)
}

// OnlineCounter counts staff active within a window.
type OnlineCounter interface {
	CountOnline(ctx context.Context, window time.Duration) (int64, error)
}

type Handler struct {
	Users   UserSource
	Content ContentSource
	Staff   OnlineCounter
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger

	now func() time.Time
}

func NewHandler(users UserSource, content ContentSource, staff OnlineCounter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:   users,
		Content: content,
		Staff:   staff,
		ErrLog:  errLog,
		Log:     logger,
		now:     time.Now,
	}
}

type recentJoin struct {
	ID       string
	Label    string
	Platform string
	Joined   string
}

type recentContent struct {
	ID       string
	Title    string
	Category string
	Status   string
	Updated  string
}

type figures struct {
	Summary       usage.Summary
	RecentJoins   []recentJoin
	RecentContent []recentContent
	StaffOnline   int64
}

type dashboardData struct {
	viewdata.BaseVM
	figures
}

// ServeDashboard handles GET /.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard load")
	defer cancel()

	f, err := h.load(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard load failed", err, "Could not load the dashboard. Please try again.", "/")
		return
	}

	templates.Render(w, r, "dashboard", dashboardData{
		BaseVM:  viewdata.NewBaseVM(r, "Dashboard", "/"),
		figures: f,
	})
}

// load fetches the dashboard sources concurrently.
func (h *Handler) load(ctx context.Context) (figures, error) {
	var (
		users   []models.AppUser
		recent  []models.AppUser
		content []models.AppContent
		online  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = h.Users.Summaries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = h.Users.Recent(gctx, recentJoinsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		content, err = h.Content.RecentlyUpdated(gctx, recentContentLimit)
		return err
	})
	if h.Staff != nil {
		g.Go(func() error {
			n, err := h.Staff.CountOnline(gctx, 5*time.Minute)
			if err != nil {
				// Informational only.
				h.Log.Warn("count online staff failed", zap.Error(err))
				return nil
			}
			online = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return figures{}, err
	}

	now := h.now()
	f := figures{
		Summary:     usage.Summarize(users, now),
		StaffOnline: online,
	}
	for _, u := range recent {
		j := recentJoin{ID: u.ID, Label: u.Label(), Platform: u.Platform, Joined: "-"}
		if u.CreatedAt.Valid {
			j.Joined = usage.TimeAgo(u.CreatedAt.Time, now)
		}
		f.RecentJoins = append(f.RecentJoins, j)
	}
	for _, c := range content {
		rc := recentContent{
			ID:       c.ID,
			Title:    c.DisplayTitle(),
			Category: c.Category(),
			Status:   c.DisplayStatus(),
			Updated:  "-",
		}
		if t, ok := c.LastChanged(); ok {
			rc.Updated = usage.TimeAgo(t, now)
		}
		f.RecentContent = append(f.RecentContent, rc)
	}
	return f, nil
}
