// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/kv"
)

// Counter decides whether one more hit against key is allowed.
type Counter interface {
	Allow(ctx context.Context, key string) bool
	Reset(ctx context.Context, key string)
}

// Limiter is an in-process fixed-window counter. It is safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit hits per duration and starts its
// cleanup loop. Call Stop to end the loop.
func New(limit int, duration time.Duration) *Limiter {
	l := newLimiter(limit, duration, time.Now)
	go l.cleanupLoop(duration * 2)
	return l
}

func newLimiter(limit int, duration time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Allow implements Counter.
func (l *Limiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many hits are left for key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || l.now().After(w.expiresAt) {
		return l.limit
	}
	if remaining := l.limit - w.count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset implements Counter.
func (l *Limiter) Reset(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RedisCounter counts hits in Redis so limits hold across instances.
// Redis errors fail open; a login form that cannot count is still usable.
type RedisCounter struct {
	kv     *kv.Clients
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisCounter builds a counter whose keys are prefix+key.
func NewRedisCounter(c *kv.Clients, prefix string, limit int, window time.Duration) *RedisCounter {
	return &RedisCounter{kv: c, prefix: prefix, limit: int64(limit), window: window}
}

// Allow implements Counter.
func (c *RedisCounter) Allow(ctx context.Context, key string) bool {
	ok, _, err := c.kv.AllowRate(ctx, c.prefix+key, c.limit, c.window)
	if err != nil {
		return true
	}
	return ok
}

// Reset implements Counter.
func (c *RedisCounter) Reset(ctx context.Context, key string) {
	c.kv.Del(ctx, c.prefix+key)
}

// ClientIP extracts the client IP, preferring the first X-Forwarded-For
// entry, then X-Real-IP, then RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Login attempt messages.
const (
	MsgTooManyFromIP      = "Too many login attempts. Please wait a minute before trying again."
	MsgTooManyForAccount  = "Too many login attempts for this account. Please wait a few minutes."
	defaultIPLimit        = 10
	defaultIPWindow       = time.Minute
	defaultEmailLimit     = 5
	defaultEmailWindow    = 5 * time.Minute
	redisLoginIPPrefix    = "mansahub:login:ip:"
	redisLoginEmailPrefix = "mansahub:login:email:"
)

// LoginLimiter limits sign-in and password-reset attempts per client IP
// and per email address.
type LoginLimiter struct {
	ip    Counter
	email Counter
}

// NewLoginLimiter uses Redis counters when c is available and in-process
// limiters otherwise. Defaults: 10 per IP per minute, 5 per email per
// 5 minutes.
func NewLoginLimiter(c *kv.Clients) *LoginLimiter {
	if c.Available() {
		return &LoginLimiter{
			ip:    NewRedisCounter(c, redisLoginIPPrefix, defaultIPLimit, defaultIPWindow),
			email: NewRedisCounter(c, redisLoginEmailPrefix, defaultEmailLimit, defaultEmailWindow),
		}
	}
	return &LoginLimiter{
		ip:    New(defaultIPLimit, defaultIPWindow),
		email: New(defaultEmailLimit, defaultEmailWindow),
	}
}

// NewLoginLimiterWithCounters is used by tests and custom wiring.
func NewLoginLimiterWithCounters(ip, email Counter) *LoginLimiter {
	return &LoginLimiter{ip: ip, email: email}
}

// Check reports whether the attempt may proceed, and if not, the message
// to show.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	ctx := r.Context()
	if !ll.ip.Allow(ctx, ClientIP(r)) {
		return false, MsgTooManyFromIP
	}
	if key := normalizeKey(email); key != "" {
		if !ll.email.Allow(ctx, key) {
			return false, MsgTooManyForAccount
		}
	}
	return true, ""
}

// ResetEmail clears the email counter after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(ctx context.Context, email string) {
	if key := normalizeKey(email); key != "" {
		ll.email.Reset(ctx, key)
	}
}

// Stop releases in-process limiter goroutines.
func (ll *LoginLimiter) Stop() {
	for _, c := range []Counter{ll.ip, ll.email} {
		if l, ok := c.(*Limiter); ok {
			l.Stop()
		}
	}
}

func normalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
