package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adpilot/internal/adapter/client"
	"adpilot/internal/adapter/executor"
	httpadapter "adpilot/internal/adapter/http"
	"adpilot/internal/adapter/notify"
	"adpilot/internal/adapter/postgres"
	"adpilot/internal/adapter/usecase"
	"adpilot/internal/config"
	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/db"
	"adpilot/internal/resilience"
)

// main loads configuration, optionally runs migrations, wires the
// workflow services and starts the HTTP server plus the control-loop
// scheduler. A termination signal shuts both down gracefully.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied successfully")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Psql.SeedDemo {
		if err = db.Seed(ctx, pool); err != nil {
			logger.Error("seed error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("demo data seeded")
	}

	store := postgres.NewStore(pool)
	breakers := resilience.NewGroup(cfg.Clients.BreakerThreshold, cfg.Clients.BreakerCoolOff)
	notifier := notify.NewLog(logger)

	var (
		copyGen  port.CopyGenerator
		imageGen port.ImageGenerator
	)
	if cfg.Clients.OpenRouterAPIKey != "" {
		or := client.NewOpenRouter(cfg.Clients)
		copyGen, imageGen = or, or
	} else {
		logger.Warn("no generation credentials, running simulated generators")
		sim := client.SimulatedGenerator{}
		copyGen, imageGen = sim, sim
	}
	// Real platform adapters slot in here once credentials ship; until
	// then every platform runs simulated.
	platforms := []port.AdPlatform{
		client.NewSimulatedPlatform(domain.PlatformMeta),
		client.NewSimulatedPlatform(domain.PlatformGoogle),
	}

	metricsExec := executor.NewMetrics(platforms, breakers, cfg.Optimizer.TickInterval)
	updateExec := executor.NewUpdate(platforms, copyGen, breakers)
	executors := []port.Executor{
		executor.NewContent(copyGen, breakers),
		executor.NewVisual(imageGen, breakers),
		executor.NewLaunch(platforms, breakers),
		metricsExec,
		updateExec,
	}

	locks := usecase.NewCampaignLocks()
	orch := usecase.NewOrchestrator(store, executors, platforms, notifier, cfg.Workflow, locks, logger)
	approvals := usecase.NewApprovals(store, orch, logger)
	budget := usecase.NewBudgetController(store, orch, notifier, cfg.Budget, logger)
	optimizer := usecase.NewOptimizer(store, orch, updateExec, metricsExec, cfg.Optimizer, locks, logger)
	scheduler := usecase.NewScheduler(store, budget, optimizer, cfg.Budget, cfg.Optimizer, logger)

	go scheduler.Run(ctx)

	handler := httpadapter.NewHandler(orch, approvals, budget, optimizer, scheduler, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
