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

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/live"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memstore"
	"github.com/spec-kit/helpdesk-service/internal/repository/mongostore"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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

	metrics := observability.NewMetrics()
	deps := map[string]handlers.Pinger{}

	store, closeStore := openStore(ctx, cfg, logger, deps)
	defer closeStore()

	tables := routing.Default()
	if cfg.Routing.TablesFile != "" {
		tables, err = routing.Load(cfg.Routing.TablesFile)
		if err != nil {
			logger.Fatal("failed to load routing tables", zap.Error(err))
		}
	}

	policy, err := authz.New()
	if err != nil {
		logger.Fatal("failed to build policy", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := live.NewHub(live.NewStoreLoader(store), logger, live.WithMetrics(metrics))
	hub.Attach(dispatcher)
	defer hub.Close()

	var locker persistence.Locker = persistence.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable; running with local locks and no cross-instance changes", zap.Error(err))
		} else {
			defer redis.Close()
			deps["redis"] = redis

			bridge := live.NewRedisBridge(redis.Client, cfg.Redis.ChangeChannel, hub, logger)
			go func() {
				if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("change bridge stopped", zap.Error(err))
				}
			}()
			locker = persistence.NewRedisLocker(redis.Client, "helpdesk:lock:", 30*time.Second)
		}
	}

	objects, err := persistence.NewObjects(ctx, cfg.Objects, logger)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}
	if objects.Enabled() {
		deps["objects"] = objects
	}

	accountService := service.NewAccountService(cfg.Auth, service.AccountDependencies{
		Accounts: store.Accounts,
		Locker:   locker,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store: store, Tables: tables, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store: store, Tables: tables, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	feedbackService := service.NewFeedbackService(service.FeedbackDependencies{
		Store: store, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		Store: store, Objects: objects, Dispatcher: dispatcher, Logger: logger,
	})
	reportService := service.NewReportService(store, tables)
	viewService := service.NewViewService(hub, policy)

	worker.StartNotificationWorker(ctx, service.NewNotificationService(dispatcher, logger, cfg.Notification, nil))
	worker.NewReconcileWorker(assignmentService, locker, cfg.Worker.ReconcileInterval(), logger).Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(accountService),
		Tickets:        handlers.NewTicketsHandler(ticketService, messageService, tables),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService, tables),
		Feedback:       handlers.NewFeedbackHandler(feedbackService),
		Accounts:       handlers.NewAccountsHandler(accountService),
		Reports:        handlers.NewReportsHandler(reportService),
		Streams:        handlers.NewStreamsHandler(viewService, tables, logger, handlers.DefaultHeartbeat),
		AuthMiddleware: auth.NewAuthMiddleware(accountService.TokenManager(), store.Accounts),
		Policy:         policy,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Open streams only end once their subscriptions are cancelled.
	hub.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// openStore connects the configured backend and registers it for readiness
// checks.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps map[string]handlers.Pinger) (*repository.Store, func()) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			logger.Fatal("failed to connect mongo", zap.Error(err))
		}
		if err := mongostore.EnsureIndexes(ctx, m.DB); err != nil {
			logger.Fatal("failed to ensure indexes", zap.Error(err))
		}
		deps["mongo"] = m
		return mongostore.New(m.Client, m.DB, cfg.Mongo.Transactions), func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.Close(closeCtx)
		}
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		db := memstore.New()
		deps["store"] = db
		return db.Store(), func() {}
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		deps["postgres"] = pg
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
