// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// StaleCloser closes ledger sessions idle for longer than a threshold.
type StaleCloser interface {
	CloseStale(ctx context.Context, threshold time.Duration) (int64, error)
}

// ThresholdFunc returns the current idle threshold. It is read on every
// pass so settings changes apply without a restart.
type ThresholdFunc func() time.Duration

// SessionCleanup is a background worker that closes staff sessions the
// watchdog could not close itself, e.g. after a restart.
type SessionCleanup struct {
	sessions  StaleCloser
	log       *zap.Logger
	interval  time.Duration
	threshold ThresholdFunc
	grace     time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewSessionCleanup creates a new session cleanup worker.
//
// Parameters:
//   - sessStore: the staff session ledger
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 1 minute)
//   - threshold: the idle timeout in force
//   - grace: added to the threshold so the watchdog normally closes first
func NewSessionCleanup(sessStore StaleCloser, logger *zap.Logger, interval time.Duration, threshold ThresholdFunc, grace time.Duration) *SessionCleanup {
	return &SessionCleanup{
		sessions:  sessStore,
		log:       logger,
		interval:  interval,
		threshold: threshold,
		grace:     grace,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SessionCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("grace", w.grace))
}

// Stop signals the worker to stop and waits for it to finish. Safe to
// call more than once.
func (w *SessionCleanup) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("session cleanup worker stopped")
}

func (w *SessionCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs one cleanup pass and returns how many sessions it closed.
func (w *SessionCleanup) RunOnce() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	limit := w.threshold() + w.grace
	count, err := w.sessions.CloseStale(ctx, limit)
	if err != nil {
		w.log.Error("failed to close stale staff sessions", zap.Error(err))
		return 0
	}

	if count > 0 {
		w.log.Info("closed stale staff sessions",
			zap.Int64("count", count),
			zap.Duration("idle_limit", limit))
	}
	return count
}
