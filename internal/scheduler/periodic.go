package scheduler

import (
	"context"
	"time"

	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Scheduler enqueues the periodic sweeps on their cron specs.
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	opt, queue, err := connOptions(cfg)
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})

	release, err := NewCommissionsReleaseTask(time.Time{})
	if err != nil {
		return nil, err
	}
	if _, err := s.Register(cfg.GetCommissionReleaseCron(), release, asynq.Queue(queue), asynq.Unique(time.Minute)); err != nil {
		return nil, err
	}

	reconcile, err := NewReconcileUnassignedTask(time.Time{})
	if err != nil {
		return nil, err
	}
	if _, err := s.Register(cfg.GetReconcileUnassignedCron(), reconcile, asynq.Queue(queue), asynq.Unique(time.Minute)); err != nil {
		return nil, err
	}

	return &Scheduler{scheduler: s, log: log}, nil
}

func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.scheduler.Shutdown()
	return nil
}

// PeriodicJob runs fn on a fixed interval in-process. It is used when Redis
// is not configured.
type PeriodicJob struct {
	name     string
	interval time.Duration
	fn       func(context.Context) error
	log      *logger.Logger
}

func NewPeriodicJob(name string, interval time.Duration, fn func(context.Context) error, log *logger.Logger) *PeriodicJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PeriodicJob{name: name, interval: interval, fn: fn, log: log}
}

func (p *PeriodicJob) Run(ctx context.Context) error {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *PeriodicJob) tick(ctx context.Context) {
	if err := p.fn(ctx); err != nil {
		p.log.Warn("periodic job failed", "job", p.name, "error", err)
	}
}
