// Package watchdog enforces the staff idle timeout independently of cookie
// expiry.
//
// Each signed-in staff session is tracked by its activity session id. The
// session layer records activity on every non-passive request and the
// layout script reports pointer, key and scroll input through heartbeats.
// A periodic check compares now minus the last activity against the
// threshold taken from app settings and, on breach, expires the session
// exactly once.
//
// Watchdog states:
//
//	Idle     no settings received yet; the default threshold applies
//	Armed    a threshold from settings is in force
//
// Per session a tracked entry is live until it breaches, then Expired
// until it is purged.
package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.uber.org/zap"
)

// Defaults.
const (
	DefaultThreshold     = models.DefaultSessionTimeoutMinutes * time.Minute
	DefaultCheckInterval = 10 * time.Second

	// expiredRetention bounds how long an expired entry is kept in memory.
	// After that the closed staff_sessions row turns the old cookie away.
	expiredRetention = 6 * time.Hour
)

// State of the watchdog as a whole.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ExpireFunc is called once per expired session, outside any lock.
type ExpireFunc func(ctx context.Context, sessionID string, inactive time.Duration)

type entry struct {
	lastActivity atomic.Int64 // unix nanos; last write wins
	expired      atomic.Bool
	expiredAt    atomic.Int64
}

// Watchdog tracks staff sessions and expires idle ones.
type Watchdog struct {
	clock      Clock
	log        *zap.Logger
	onExpire   ExpireFunc
	checkEvery time.Duration

	threshold atomic.Int64 // nanoseconds
	armed     atomic.Bool
	rearm     chan struct{}

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(w *Watchdog) { w.clock = c } }

// WithCheckInterval sets how often Run checks for idle sessions.
func WithCheckInterval(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.checkEvery = d
		}
	}
}

// New creates an Idle watchdog using DefaultThreshold.
func New(onExpire ExpireFunc, log *zap.Logger, opts ...Option) *Watchdog {
	w := &Watchdog{
		clock:      realClock{},
		log:        log,
		onExpire:   onExpire,
		checkEvery: DefaultCheckInterval,
		rearm:      make(chan struct{}, 1),
		sessions:   make(map[string]*entry),
	}
	w.threshold.Store(int64(DefaultThreshold))
	for _, o := range opts {
		o(w)
	}
	return w
}

// State reports Idle until the first threshold is set.
func (w *Watchdog) State() State {
	if w.armed.Load() {
		return Armed
	}
	return Idle
}

// Threshold returns the idle limit in force.
func (w *Watchdog) Threshold() time.Duration {
	return time.Duration(w.threshold.Load())
}

// SetThreshold arms the watchdog with d (non-positive means the default)
// and restarts the check ticker. It never blocks.
func (w *Watchdog) SetThreshold(d time.Duration) {
	if d <= 0 {
		d = DefaultThreshold
	}
	old := time.Duration(w.threshold.Swap(int64(d)))
	wasArmed := w.armed.Swap(true)
	if wasArmed && old == d {
		return
	}
	w.log.Info("session watchdog armed",
		zap.Duration("threshold", d), zap.Duration("previous", old))
	select {
	case w.rearm <- struct{}{}:
	default:
	}
}

// Touch records activity for sessionID, tracking it if new. Expired
// sessions are not revived.
func (w *Watchdog) Touch(sessionID string) {
	if sessionID == "" {
		return
	}
	now := w.clock.Now().UnixNano()

	w.mu.Lock()
	e, ok := w.sessions[sessionID]
	if !ok {
		e = &entry{}
		w.sessions[sessionID] = e
	}
	w.mu.Unlock()

	if e.expired.Load() {
		return
	}
	e.lastActivity.Store(now)
}

// Forget stops tracking sessionID (explicit sign-out).
func (w *Watchdog) Forget(sessionID string) {
	w.mu.Lock()
	delete(w.sessions, sessionID)
	w.mu.Unlock()
}

// Expired reports whether sessionID was expired for inactivity.
func (w *Watchdog) Expired(sessionID string) bool {
	w.mu.Lock()
	e, ok := w.sessions[sessionID]
	w.mu.Unlock()
	return ok && e.expired.Load()
}

// Status is the watchdog view of one session, for heartbeats.
type Status struct {
	Tracked   bool
	Expired   bool
	Remaining time.Duration
}

// Status reports the remaining idle allowance of sessionID.
func (w *Watchdog) Status(sessionID string) Status {
	w.mu.Lock()
	e, ok := w.sessions[sessionID]
	w.mu.Unlock()
	if !ok {
		return Status{Remaining: w.Threshold()}
	}
	if e.expired.Load() {
		return Status{Tracked: true, Expired: true}
	}
	inactive := w.clock.Now().Sub(time.Unix(0, e.lastActivity.Load()))
	remaining := w.Threshold() - inactive
	if remaining < 0 {
		remaining = 0
	}
	return Status{Tracked: true, Remaining: remaining}
}

// Tracked returns the number of live (non-expired) sessions.
func (w *Watchdog) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, e := range w.sessions {
		if !e.expired.Load() {
			n++
		}
	}
	return n
}

// Check expires every live session whose inactivity is strictly greater
// than the threshold and returns how many it expired. Each session
// expires at most once.
func (w *Watchdog) Check(ctx context.Context) int {
	now := w.clock.Now()
	threshold := w.Threshold()

	type breach struct {
		id       string
		inactive time.Duration
	}
	var breached []breach

	w.mu.Lock()
	for id, e := range w.sessions {
		if e.expired.Load() {
			if now.Sub(time.Unix(0, e.expiredAt.Load())) > expiredRetention {
				delete(w.sessions, id)
			}
			continue
		}
		inactive := now.Sub(time.Unix(0, e.lastActivity.Load()))
		if inactive > threshold && e.expired.CompareAndSwap(false, true) {
			e.expiredAt.Store(now.UnixNano())
			breached = append(breached, breach{id: id, inactive: inactive})
		}
	}
	w.mu.Unlock()

	for _, b := range breached {
		w.log.Info("session expired for inactivity",
			zap.String("session_id", b.id),
			zap.Duration("inactive", b.inactive),
			zap.Duration("threshold", threshold))
		if w.onExpire != nil {
			w.onExpire(ctx, b.id, b.inactive)
		}
	}
	return len(breached)
}

// Run checks on a ticker until ctx is cancelled. Values received on
// thresholds re-arm the watchdog; a threshold change resets the single
// ticker rather than starting another.
func (w *Watchdog) Run(ctx context.Context, thresholds <-chan time.Duration) {
	ticker := time.NewTicker(w.checkEvery)
	defer ticker.Stop()

	w.log.Info("session watchdog started",
		zap.Duration("check_interval", w.checkEvery),
		zap.Duration("threshold", w.Threshold()))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("session watchdog stopped")
			return
		case d, ok := <-thresholds:
			if !ok {
				thresholds = nil
				continue
			}
			w.SetThreshold(d)
		case <-w.rearm:
			ticker.Reset(w.checkEvery)
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
