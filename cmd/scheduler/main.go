package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"affiliate_portal_backend/internal/agents"
	apptrepo "affiliate_portal_backend/internal/appointments/repository"
	"affiliate_portal_backend/internal/attribution"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/internal/commissions"
	"affiliate_portal_backend/internal/events"
	leadrepo "affiliate_portal_backend/internal/leads/repository"
	"affiliate_portal_backend/internal/notification"
	"affiliate_portal_backend/internal/scheduler"
	"affiliate_portal_backend/internal/settings"
	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/db"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	notification.New(log).RegisterHandlers(eventBus)

	attributionSvc := attribution.NewService(leadrepo.New(pool), apptrepo.New(pool), audit.New(pool))
	ledgerSettings := settings.NewProvider(settings.NewRepository(pool), cfg, log)
	commissionsModule := commissions.NewModule(pool, attributionSvc, ledgerSettings, eventBus, validator.New(), log)
	agentsModule := agents.NewModule(pool, eventBus, log)

	jobs := scheduler.NewJobs(commissionsModule.Ledger(), agentsModule.Assigner(), log)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; running sweeps on in-process tickers")
		release := scheduler.NewPeriodicJob(scheduler.TaskCommissionsRelease, everyInterval(cfg.GetCommissionReleaseCron(), time.Hour), jobs.ReleaseCommissions, log)
		reconcile := scheduler.NewPeriodicJob(scheduler.TaskReconcileUnassigned, everyInterval(cfg.GetReconcileUnassignedCron(), 5*time.Minute), jobs.ReconcileUnassigned, log)
		g.Go(func() error { return release.Run(gctx) })
		g.Go(func() error { return reconcile.Run(gctx) })
	} else {
		worker, err := scheduler.NewWorker(cfg, jobs, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		periodic, err := scheduler.NewScheduler(cfg, log)
		if err != nil {
			log.Error("failed to initialize periodic scheduler", "error", err)
			panic("failed to initialize periodic scheduler: " + err.Error())
		}
		g.Go(func() error { return worker.Run(gctx) })
		g.Go(func() error { return periodic.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
}

// everyInterval reads "@every <duration>" cron specs for the ticker fallback.
// Any other spec falls back to the given default.
func everyInterval(spec string, fallback time.Duration) time.Duration {
	raw, ok := strings.CutPrefix(strings.TrimSpace(spec), "@every ")
	if !ok {
		return fallback
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
