// internal/app/features/heartbeat/handler.go
package heartbeat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/watchdog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Tracker is the session watchdog as the heartbeat sees it. Activity
// itself is recorded by the session middleware for every non-passive
// request, this one included.
type Tracker interface {
	Status(sessionID string) watchdog.Status
	Threshold() time.Duration
	Forget(sessionID string)
}

// Ledger is the staff_sessions store.
type Ledger interface {
	UpdateLastActive(ctx context.Context, sessionID primitive.ObjectID) (bool, error)
}

// SignOuter clears the session cookie.
type SignOuter interface {
	SignOut(w http.ResponseWriter, r *http.Request) (string, error)
}

// Handler handles heartbeat requests for idle tracking.
type Handler struct {
	Tracker  Tracker
	Sessions Ledger
	Auth     SignOuter
	Log      *zap.Logger
}

// NewHandler creates a new heartbeat handler.
func NewHandler(tracker Tracker, sess Ledger, signOut SignOuter, logger *zap.Logger) *Handler {
	return &Handler{
		Tracker:  tracker,
		Sessions: sess,
		Auth:     signOut,
		Log:      logger,
	}
}

// heartbeatRequest is the JSON body posted by the layout script.
type heartbeatRequest struct {
	Page            string `json:"page"`
	HadUserActivity bool   `json:"had_user_activity"`
}

// Response reports the idle state back to the page.
type Response struct {
	Expired          bool   `json:"expired"`
	Redirect         string `json:"redirect,omitempty"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	TimeoutSeconds   int64  `json:"timeout_seconds"`
}

// ServeHeartbeat handles POST /api/heartbeat.
//
// Heartbeats with had_user_activity refresh last_active_at on the staff
// session. A session the ledger already closed (for example by the
// stale-session worker after a restart) is signed out here.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if r.Body != nil {
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req)
	}

	sid := auth.ActivitySessionID(r)
	resp := Response{TimeoutSeconds: int64(h.Tracker.Threshold().Seconds())}

	if sid != "" {
		st := h.Tracker.Status(sid)
		if st.Expired {
			h.expire(w, r, sid, &resp)
			writeJSON(w, resp)
			return
		}
		resp.RemainingSeconds = int64(st.Remaining.Seconds())

		if req.HadUserActivity && r.Header.Get(auth.PassiveHeader) == "" {
			if open := h.touchLedger(r, sid); !open {
				h.expire(w, r, sid, &resp)
			}
		}
	}

	writeJSON(w, resp)
}

// touchLedger reports false only when the ledger says the session is closed.
func (h *Handler) touchLedger(r *http.Request, sid string) bool {
	oid, err := primitive.ObjectIDFromHex(sid)
	if err != nil {
		return true
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "heartbeat last_active update")
	defer cancel()

	updated, err := h.Sessions.UpdateLastActive(ctx, oid)
	if err != nil {
		h.Log.Warn("failed to update session last_active_at",
			zap.Error(err),
			zap.String("session_id", sid))
		return true
	}
	return updated
}

func (h *Handler) expire(w http.ResponseWriter, r *http.Request, sid string, resp *Response) {
	resp.Expired = true
	resp.Redirect = auth.ExpiredLoginPath
	resp.RemainingSeconds = 0
	h.Tracker.Forget(sid)
	if _, err := h.Auth.SignOut(w, r); err != nil {
		h.Log.Warn("failed to clear expired session cookie", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

var _ Ledger = (*sessions.Store)(nil)
