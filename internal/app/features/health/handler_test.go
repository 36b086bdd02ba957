package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/mansahub/internal/app/features/health"
	"github.com/dalemusser/mansahub/internal/testutil"
	"go.uber.org/zap"
)

type fakeRedis struct {
	available bool
	err       error
}

func (f fakeRedis) Available() bool            { return f.available }
func (f fakeRedis) Ping(context.Context) error { return f.err }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func TestServe(t *testing.T) {
	tests := []struct {
		name       string
		redis      health.Pinger
		wantStatus string
		wantRedis  string
	}{
		{"no redis", nil, "ok", "disabled"},
		{"redis not configured", fakeRedis{}, "ok", "disabled"},
		{"redis up", fakeRedis{available: true}, "ok", "connected"},
		{"redis down", fakeRedis{available: true, err: errors.New("refused")}, "degraded", "disconnected"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			h := health.NewHandler(db.Client(), tc.redis, zap.NewNop())

			rec := httptest.NewRecorder()
			h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}

			var resp response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Status != tc.wantStatus {
				t.Errorf("expected status %q, got %q", tc.wantStatus, resp.Status)
			}
			if resp.Database != "connected" {
				t.Errorf("expected database connected, got %q", resp.Database)
			}
			if resp.Redis != tc.wantRedis {
				t.Errorf("expected redis %q, got %q", tc.wantRedis, resp.Redis)
			}
		})
	}
}
