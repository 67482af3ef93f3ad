// Package jobs runs the periodic ledger maintenance: the retention sweep and
// the reconciliation pass that rebuilds every counter from the ledger.
package jobs

import (
	"context"
	"fmt"
	"time"

	"moviebooking/internal/analytics"
	"moviebooking/internal/shared/config"
	"moviebooking/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

const runTimeout = 5 * time.Minute

type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

type Purger interface {
	PurgeCancelled(ctx context.Context, olderThan time.Duration) (*analytics.PurgeResult, error)
}

type Scheduler struct {
	scheduler  gocron.Scheduler
	cfg        config.JobsConfig
	reconciler Reconciler
	purger     Purger
	logger     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers both jobs; nothing runs until Start
func NewScheduler(cfg config.JobsConfig, reconciler Reconciler, purger Purger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler:  s,
		cfg:        cfg,
		reconciler: reconciler,
		purger:     purger,
		logger:     logger.GetDefault(),
		ctx:        ctx,
		cancel:     cancel,
	}

	_, err = s.NewJob(
		gocron.CronJob(cfg.RetentionCron, false),
		gocron.NewTask(func() { sched.RunRetention(sched.ctx) }),
		gocron.WithName("retention-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule retention sweep %q: %w", cfg.RetentionCron, err)
	}

	if cfg.ReconcileInterval > 0 {
		_, err = s.NewJob(
			gocron.DurationJob(cfg.ReconcileInterval),
			gocron.NewTask(func() { sched.RunReconcile(sched.ctx) }),
			gocron.WithName("inventory-reconcile"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule reconciliation: %w", err)
		}
	}

	return sched, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("background jobs started",
		"retention_cron", s.cfg.RetentionCron,
		"retention_age", s.cfg.RetentionAge.String(),
		"reconcile_interval", s.cfg.ReconcileInterval.String(),
	)
}

// Shutdown stops scheduling and cancels running jobs
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.scheduler.Shutdown()
}

// RunRetention deletes CANCELLED bookings older than the configured age
func (s *Scheduler) RunRetention(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if _, err := s.purger.PurgeCancelled(ctx, s.cfg.RetentionAge); err != nil {
		s.logger.ErrorWithContext(ctx, "retention sweep failed", err, nil)
	}
}

// RunReconcile recalculates every pair from the ledger
func (s *Scheduler) RunReconcile(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	changed, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "reconciliation failed", err, map[string]interface{}{"changed": changed})
		return
	}
	if changed > 0 {
		s.logger.Warn("reconciliation corrected drifted counters", "changed", changed)
	}
}
