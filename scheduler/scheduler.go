package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"stock-alerts/services/monitor"
)

// Runner owns the periodic execution of monitoring cycles.
type Runner struct {
	cron     *gocron.Scheduler
	tracker  *monitor.Tracker
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewRunner(tracker *monitor.Tracker, intervalMinutes int, log *zap.SugaredLogger) *Runner {
	return &Runner{
		cron:     gocron.NewScheduler(time.UTC),
		tracker:  tracker,
		interval: time.Duration(intervalMinutes) * time.Minute,
		log:      log,
	}
}

// Start schedules the cycle job and runs the scheduler in the
// background. SingletonMode guarantees a slow cycle is never
// overlapped by the next tick; a tick that finds a manually triggered
// cycle in flight is skipped.
func (r *Runner) Start() {
	r.log.Infow("starting scheduler", "interval", r.interval)

	r.cron.Every(r.interval).SingletonMode().Do(func() {
		if _, ok := r.tracker.Run(context.Background()); !ok {
			r.log.Debugw("cycle already running, skipping scheduled tick")
		}
	})

	r.cron.StartAsync()
}

// Stop halts the scheduler. A cycle already in progress runs to
// completion; cancellation mid-cycle is not modeled.
func (r *Runner) Stop() {
	r.cron.Stop()
	r.log.Infow("scheduler stopped")
}
