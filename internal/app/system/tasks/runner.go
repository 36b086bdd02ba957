// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner ticks a fixed set of jobs until its context is cancelled.
type Runner struct {
	jobs []Job
	log  *zap.Logger
}

// NewRunner creates a runner for the given jobs. Jobs with a non-positive
// interval are skipped.
func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	kept := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Interval > 0 && j.Run != nil {
			kept = append(kept, j)
		}
	}
	return &Runner{jobs: kept, log: logger}
}

// Run blocks until ctx is cancelled, running each job on its own ticker.
// A failing pass is logged; the job runs again on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range r.jobs {
		j := j
		g.Go(func() error {
			r.loop(ctx, j)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	r.log.Info("task scheduled", zap.String("job", j.Name), zap.Duration("interval", j.Interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx, j)
		}
	}
}

// RunOnce executes a single pass of j under a bounded timeout.
func (r *Runner) RunOnce(ctx context.Context, j Job) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := j.Run(ctx); err != nil {
		r.log.Warn("task failed", zap.String("job", j.Name), zap.Error(err))
	}
}
