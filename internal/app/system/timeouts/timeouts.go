// Package timeouts holds the bounded deadlines used for every database,
// cache and mail call made while serving a request.
//
// Calls fail fast when a deadline passes; nothing is retried. Handlers
// surface the failure to the user and the next request starts fresh.
//
// Categories:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads and writes (profile lookup, config read)
//   - Medium: list queries and counts (team list, app-user list, analytics)
//   - Aggregate: the concurrent activity fan-out for one app user
//   - Long: exports and multi-collection writes (CSV export, invite + audit)
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing      = 2 * time.Second
	DefaultShort     = 5 * time.Second
	DefaultMedium    = 10 * time.Second
	DefaultAggregate = 15 * time.Second
	DefaultLong      = 30 * time.Second
)

// Config holds timeout values. Zero values are ignored by Configure.
type Config struct {
	Ping      time.Duration
	Short     time.Duration
	Medium    time.Duration
	Aggregate time.Duration
	Long      time.Duration
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func defaults() Config {
	return Config{
		Ping:      DefaultPing,
		Short:     DefaultShort,
		Medium:    DefaultMedium,
		Aggregate: DefaultAggregate,
		Long:      DefaultLong,
	}
}

// Ping is the deadline for health checks.
func Ping() time.Duration { return get().Ping }

// Short is the deadline for single-document operations.
func Short() time.Duration { return get().Short }

// Medium is the deadline for list queries and counts.
func Medium() time.Duration { return get().Medium }

// Aggregate is the deadline for the whole activity fan-out of one user.
func Aggregate() time.Duration { return get().Aggregate }

// Long is the deadline for exports and multi-collection writes.
func Long() time.Duration { return get().Long }

func get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure overrides the non-zero values in cfg. Call it once at startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		cur.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		cur.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		cur.Medium = cfg.Medium
	}
	if cfg.Aggregate > 0 {
		cur.Aggregate = cfg.Aggregate
	}
	if cfg.Long > 0 {
		cur.Long = cfg.Long
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// Current returns the active configuration, for startup logging.
func Current() Config {
	return get()
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Aggregate(), h.Log, "activity aggregation")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
