package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"affiliate_portal_backend/internal/agents"
	"affiliate_portal_backend/internal/appointments"
	apptrepo "affiliate_portal_backend/internal/appointments/repository"
	"affiliate_portal_backend/internal/attribution"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/internal/commissions"
	"affiliate_portal_backend/internal/events"
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/internal/http/router"
	"affiliate_portal_backend/internal/leads"
	leadrepo "affiliate_portal_backend/internal/leads/repository"
	"affiliate_portal_backend/internal/notification"
	"affiliate_portal_backend/internal/partners"
	"affiliate_portal_backend/internal/partners/cooldown"
	partnerservice "affiliate_portal_backend/internal/partners/service"
	"affiliate_portal_backend/internal/settings"
	"affiliate_portal_backend/internal/webhook"
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

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	clickCooldown, closeCooldown := initClickCooldown(cfg, log)
	if closeCooldown != nil {
		defer closeCooldown()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	ledgerSettings := settings.NewProvider(settings.NewRepository(pool), cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(log)
	notificationModule.RegisterHandlers(eventBus)

	// Attribution reads leads and appointments through their repositories so
	// it can be built before the modules that depend on it.
	attributionModule := attribution.NewModule(leadrepo.New(pool), apptrepo.New(pool), audit.New(pool))

	commissionsModule := commissions.NewModule(pool, attributionModule.Service(), ledgerSettings, eventBus, val, log)
	agentsModule := agents.NewModule(pool, eventBus, log)
	appointmentsModule := appointments.NewModule(pool, agentsModule.Assigner(), commissionsModule.Recorder(), val, log)
	leadsModule := leads.NewModule(pool, commissionsModule.Recorder(), val, log)
	partnersModule := partners.NewModule(pool, clickCooldown, cfg, log)
	webhookModule := webhook.NewModule(appointmentsModule.Service(), cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			partnersModule,
			leadsModule,
			appointmentsModule,
			agentsModule,
			commissionsModule,
			attributionModule,
			webhookModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

// initClickCooldown connects the Redis click throttle. Without Redis every
// click is recorded.
func initClickCooldown(cfg config.SchedulerConfig, log *logger.Logger) (partnerservice.Cooldown, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; click cooldown disabled")
		return nil, nil
	}

	client, err := cooldown.NewRedisFromURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to initialize click cooldown", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
