package analytics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.uber.org/zap"
)

type fakeUsers struct {
	users []models.AppUser
	err   error
}

func (f fakeUsers) Summaries(context.Context) ([]models.AppUser, error) { return f.users, f.err }

func TestBuild_Ranges(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	users := []models.AppUser{
		{ID: "a", Platform: models.PlatformIOS, CreatedAt: models.NewFlexTime(now.Add(-time.Hour)), LastActive: models.NewFlexTime(now)},
		{ID: "b", Platform: models.PlatformAndroid, CreatedAt: models.NewFlexTime(now.Add(-10 * 24 * time.Hour))},
		{ID: "c", Platform: models.PlatformAndroid, CreatedAt: models.NewFlexTime(now.Add(-90 * 24 * time.Hour))},
	}
	h := NewHandler(fakeUsers{users: users}, nil, time.UTC)
	h.now = func() time.Time { return now }
	req := httptest.NewRequest("GET", "/analytics", nil)

	week := h.build(req, users, "")
	if week.Range != RangeWeek || len(week.Chart) != 7 {
		t.Errorf("expected 7 daily bars for the default range, got %s/%d", week.Range, len(week.Chart))
	}
	if week.Chart[6].Users != 1 || week.Chart[6].Height != 100 {
		t.Errorf("expected today's bar full height with 1 user, got %+v", week.Chart[6])
	}

	month := h.build(req, users, RangeMonth)
	if month.Range != RangeMonth || len(month.Chart) != 4 {
		t.Errorf("expected 4 weekly bars, got %s/%d", month.Range, len(month.Chart))
	}

	if week.Total != 3 || week.Active24h != 1 || week.NewLast30 != 2 {
		t.Errorf("unexpected totals: total=%d active=%d new30=%d", week.Total, week.Active24h, week.NewLast30)
	}
	if week.Android.Percentage != 67 || week.IOS.Percentage != 33 {
		t.Errorf("expected 33/67 platform split, got ios=%d android=%d", week.IOS.Percentage, week.Android.Percentage)
	}
	if week.GrowthLabel() != "+200.0%" {
		t.Errorf("expected +200.0%% growth, got %s", week.GrowthLabel())
	}
}

func TestServeAnalytics_SourceError(t *testing.T) {
	h := NewHandler(fakeUsers{err: errors.New("down")}, uierrors.NewErrorLogger(zap.NewNop()), nil)
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		h.ServeAnalytics(rec, httptest.NewRequest("GET", "/analytics", nil))
	}()
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
