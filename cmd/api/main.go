package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httpapi "github.com/servcore/helpdesk/internal/api/http"
	"github.com/servcore/helpdesk/internal/api/http/handlers"
	"github.com/servcore/helpdesk/internal/auth"
	"github.com/servcore/helpdesk/internal/config"
	"github.com/servcore/helpdesk/internal/events"
	"github.com/servcore/helpdesk/internal/observability"
	"github.com/servcore/helpdesk/internal/persistence"
	"github.com/servcore/helpdesk/internal/repository"
	"github.com/servcore/helpdesk/internal/service"
	"github.com/servcore/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(*cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := persistence.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, "migrations"); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redisStore, err := persistence.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer func() { _ = redisStore.Close() }()

	store := repository.NewStore(pool)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, store.Users(), redisStore)
	ticketService := service.NewTicketService(store, dispatcher)
	lifecycleService := service.NewLifecycleService(store, dispatcher)
	arbitrationService := service.NewArbitrationService(store, dispatcher, cfg.Arbitration.RequestMinAge())
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httpapi.ErrorHandler(logger),
	})

	httpapi.RegisterMiddlewares(app, cfg, logger, metrics)
	httpapi.RegisterRoutes(app, httpapi.Handlers{
		Health:             handlers.NewHealthHandler(cfg.App.Version, pool, redisStore, metrics),
		Auth:               handlers.NewAuthHandler(authService),
		Tickets:            handlers.NewTicketsHandler(ticketService, lifecycleService, arbitrationService, metrics),
		AssignmentRequests: handlers.NewAssignmentRequestsHandler(arbitrationService),
	}, auth.NewAuthMiddleware(authService.TokenManager(), store.Users()))

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
