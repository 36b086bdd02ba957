package useractivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/mansahub/internal/app/features/errors"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/activityfeed"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"github.com/dalemusser/mansahub/internal/testutil"
	"go.uber.org/zap"
)

type fakeUsers map[string]models.AppUserRow

func (f fakeUsers) GetByID(_ context.Context, uid string) (models.AppUserRow, error) {
	u, ok := f[uid]
	if !ok {
		return models.AppUserRow{}, appuserstore.ErrNotFound
	}
	return u, nil
}

type fakeFeed struct {
	feed  activityfeed.Feed
	err   error
	calls int
}

func (f *fakeFeed) Aggregate(context.Context, string) (activityfeed.Feed, error) {
	f.calls++
	return f.feed, f.err
}

var colombo = time.FixedZone("LKT", 5*3600+30*60)

func newHandler(feed *fakeFeed) *Handler {
	users := fakeUsers{
		"u1": {AppUser: models.AppUser{ID: "u1", PatientID: "P123"}},
	}
	logger := zap.NewNop()
	return NewHandler(users, feed, uierrors.NewErrorLogger(logger), colombo, logger)
}

func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func request(path, id string) *http.Request {
	req := testutil.NewAuthenticatedRequest("GET", path, testutil.ViewerUser())
	return testutil.WithChiURLParam(req, "id", id)
}

func TestServeActivityCSV(t *testing.T) {
	at := time.Date(2026, 3, 1, 4, 30, 0, 0, time.UTC)
	feed := &fakeFeed{feed: activityfeed.Feed{Records: []activityfeed.Record{
		{ID: "m1", Type: activityfeed.Mood, Time: at, HasTime: true, Details: "Feeling 😊 (happy)"},
		{ID: "k1", Type: activityfeed.Kick, Details: "10 kicks recorded"},
	}}}
	h := newHandler(feed)

	rec := serve(h.ServeActivityCSV, request("/app-users/u1/activity.csv", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "P123_activity_log.csv") {
		t.Errorf("expected patient filename, got %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(rec.Body.String(), "\ufeff")), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if strings.TrimSpace(lines[1]) != "2026-03-01,10:00:00,Mood,Feeling 😊 (happy)" {
		t.Errorf("expected local time on mood row, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "-,-,Kick,") {
		t.Errorf("expected unresolved kick row, got %q", lines[2])
	}
}

func TestServeActivityCSV_AggregationError(t *testing.T) {
	feed := &fakeFeed{err: &activityfeed.AggregationError{Source: activityfeed.SourceMoods, Err: errors.New("timeout")}}
	h := newHandler(feed)

	rec := serve(h.ServeActivityCSV, request("/app-users/u1/activity.csv", "u1"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Error("expected no download on failure")
	}
}

func TestServeActivity_UnknownUser(t *testing.T) {
	feed := &fakeFeed{}
	h := newHandler(feed)

	rec := serve(h.ServeActivity, request("/app-users/nope/activity", "nope"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if feed.calls != 0 {
		t.Errorf("expected no aggregation for an unknown user, got %d calls", feed.calls)
	}
}

func TestServeActivity_AggregationErrorKeepsPageUp(t *testing.T) {
	feed := &fakeFeed{err: &activityfeed.AggregationError{Source: activityfeed.SourceKicks, Err: errors.New("boom")}}
	h := newHandler(feed)

	rec := serve(h.ServeActivity, request("/app-users/u1/activity", "u1"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected the page to render with 200, got %d", rec.Code)
	}
}

func TestStatCards(t *testing.T) {
	timeCards, activity := statCards(activityfeed.Stats{
		Kick: 1, Mood: 1, Psychoeducation: 2, Feedback: 1,
		OnlineSeconds: 125, OfflineSeconds: 3600, TotalSeconds: 3725,
	})
	if timeCards[0].Value != "1h 2m" || timeCards[1].Value != "2m" || timeCards[2].Value != "1h 0m" {
		t.Errorf("unexpected time cards: %+v", timeCards)
	}
	want := map[string]string{"Kicks": "1", "Moods": "1", "Chapters": "2", "Feedback": "1", "Breathing": "0"}
	for _, c := range activity {
		if v, ok := want[c.Label]; ok && c.Value != v {
			t.Errorf("%s: expected %s, got %s", c.Label, v, c.Value)
		}
	}
}

func TestTimeline(t *testing.T) {
	h := newHandler(&fakeFeed{})
	rows := h.timeline([]activityfeed.Record{
		{Type: activityfeed.Mood, Time: time.Date(2026, 3, 1, 4, 30, 0, 0, time.UTC), HasTime: true},
		{Type: activityfeed.Kick},
	})
	if rows[0].When != "1 Mar 2026, 10:00 AM" {
		t.Errorf("expected local time, got %q", rows[0].When)
	}
	if rows[1].When != "Unknown time" || rows[1].Icon != "footprints" {
		t.Errorf("unexpected unresolved row: %+v", rows[1])
	}
}
