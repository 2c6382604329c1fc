package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notification"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
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

	if err := workflow.ValidateTable(); err != nil {
		logger.Fatal("invalid transition table", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := persistence.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
	}

	redisClient := persistence.NewRedisClient(ctx, cfg.Redis, logger)
	defer redisClient.Close() //nolint:errcheck

	var (
		userRepo    repository.UserRepository
		ticketRepo  repository.TicketRepository
		commentRepo repository.CommentRepository
	)
	if pool != nil {
		userRepo = repository.NewUserRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		commentRepo = repository.NewCommentRepository(pool)
	} else {
		memUsers := repository.NewMemoryUserRepository()
		userRepo = memUsers
		ticketRepo = repository.NewMemoryTicketRepository(memUsers)
		commentRepo = repository.NewMemoryCommentRepository()
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	engine := workflow.NewEngine(workflow.EngineDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		CommentRepo: commentRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	recommender := assignment.NewRecommender(assignment.Dependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Cache:      redisClient,
		Logger:     logger,
	})
	recommender.RegisterEventHandlers(dispatcher)

	registry := realtime.NewRegistry(logger)
	store := notification.NewStore(registry, logger)
	hub := realtime.NewHub(registry, store, logger)
	hub.RegisterEventHandlers(dispatcher)

	composer := notification.NewComposer(store, userRepo, logger)
	composer.RegisterHandlers(dispatcher)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		CommentRepo: commentRepo,
		Dispatcher:  dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo: commentRepo,
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
	})

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pool, redisClient, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, commentService),
		Workflow:       handlers.NewWorkflowHandler(engine, ticketRepo),
		Assignment:     handlers.NewAssignmentHandler(recommender),
		Notifications:  handlers.NewNotificationsHandler(store),
		AuthMiddleware: authMiddleware,
		WSUpgrade:      realtime.UpgradeMiddleware(authService.TokenManager(), userRepo),
		WSHandler:      realtime.Handler(hub, logger),
	})

	maintenance := worker.NewMaintenanceWorker(cfg.Maintenance, store, engine, logger)
	maintenance.Start(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
