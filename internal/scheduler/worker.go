package scheduler

import (
	"context"
	"fmt"

	agenttransport "affiliate_portal_backend/internal/agents/transport"
	commtransport "affiliate_portal_backend/internal/commissions/transport"
	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Releaser releases expired commission holds.
type Releaser interface {
	ReleaseDue(ctx context.Context) (commtransport.ReleaseResponse, error)
}

// Reconciler assigns appointments left without a closer.
type Reconciler interface {
	ReconcileUnassigned(ctx context.Context) (agenttransport.ReconcileResponse, error)
}

// Jobs bundles the sweeps the worker and the ticker fallback run.
type Jobs struct {
	releaser   Releaser
	reconciler Reconciler
	log        *logger.Logger
}

func NewJobs(releaser Releaser, reconciler Reconciler, log *logger.Logger) *Jobs {
	return &Jobs{releaser: releaser, reconciler: reconciler, log: log}
}

// ReleaseCommissions runs one release sweep.
func (j *Jobs) ReleaseCommissions(ctx context.Context) error {
	result, err := j.releaser.ReleaseDue(ctx)
	if err != nil {
		return fmt.Errorf("release commissions: %w", err)
	}
	if result.Released > 0 {
		j.log.Info("release sweep finished", "released", result.Released)
	}
	return nil
}

// ReconcileUnassigned runs one reconciliation sweep.
func (j *Jobs) ReconcileUnassigned(ctx context.Context) error {
	if _, err := j.reconciler.ReconcileUnassigned(ctx); err != nil {
		return fmt.Errorf("reconcile unassigned: %w", err)
	}
	return nil
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs *Jobs, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connOptions(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{server: server, mux: NewMux(jobs), log: log}
	return w, nil
}

// NewMux routes the sweep tasks to jobs.
func NewMux(jobs *Jobs) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCommissionsRelease, func(ctx context.Context, task *asynq.Task) error {
		if _, err := ParseSweepPayload(task); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return jobs.ReleaseCommissions(ctx)
	})
	mux.HandleFunc(TaskReconcileUnassigned, func(ctx context.Context, task *asynq.Task) error {
		if _, err := ParseSweepPayload(task); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return jobs.ReconcileUnassigned(ctx)
	})
	return mux
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
		return err
	}
	return nil
}
