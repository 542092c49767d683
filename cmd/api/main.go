package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hubops-service/internal/api/http"
	"github.com/spec-kit/hubops-service/internal/api/http/handlers"
	"github.com/spec-kit/hubops-service/internal/auth"
	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/config"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/observability"
	"github.com/spec-kit/hubops-service/internal/persistence"
	"github.com/spec-kit/hubops-service/internal/repository"
	"github.com/spec-kit/hubops-service/internal/service"
	"github.com/spec-kit/hubops-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := persistence.Open(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Storage.RunMigrations {
		if err := persistence.RunMigrations(ctx, db.DB, db.Driver, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(db.DB, db.Driver)
	metrics := observability.NewMetrics("hubops")
	systemClock := clock.Real()

	dispatcher := events.NewInMemoryDispatcher(func(e events.Event, err error) {
		logger.Warn("event handler failed", zap.String("event_type", string(e.Type)), zap.Error(err))
	})
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(store, tokens, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Clock:       systemClock,
		Dispatcher:  dispatcher,
		Recorder:    metrics,
		Logger:      logger,
		StrictScope: cfg.Auth.StrictScope,
	})
	taskService := service.NewRecurringTaskService(service.RecurringTaskDependencies{
		Store:  store,
		Clock:  systemClock,
		Logger: logger,
	})
	schedulerService := service.NewSchedulerService(service.SchedulerDependencies{
		Store:      store,
		Clock:      systemClock,
		Dispatcher: dispatcher,
		Recorder:   metrics,
		Logger:     logger,
	})

	if cfg.Scheduler.Enabled {
		sweeper := worker.NewSchedulerWorker(schedulerService, redis, cfg.Scheduler.Interval(), cfg.Scheduler.LockTTL(), logger)
		go sweeper.Run(ctx)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, db, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Departments:    handlers.NewDepartmentsHandler(service.NewDirectoryService(store)),
		RecurringTasks: handlers.NewRecurringTasksHandler(taskService),
		Scheduler:      handlers.NewSchedulerHandler(schedulerService),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Repos().Users),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
