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

	httptransport "github.com/spec-kit/returns-service/internal/api/http"
	"github.com/spec-kit/returns-service/internal/api/http/handlers"
	"github.com/spec-kit/returns-service/internal/auth"
	"github.com/spec-kit/returns-service/internal/config"
	"github.com/spec-kit/returns-service/internal/events"
	"github.com/spec-kit/returns-service/internal/mailer"
	"github.com/spec-kit/returns-service/internal/observability"
	"github.com/spec-kit/returns-service/internal/persistence"
	"github.com/spec-kit/returns-service/internal/repository"
	"github.com/spec-kit/returns-service/internal/repository/memory"
	"github.com/spec-kit/returns-service/internal/service"
	"github.com/spec-kit/returns-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	checks := map[string]handlers.Pinger{"redis": redis}
	var (
		store    repository.Store
		users    repository.UserRepository
		products repository.ProductRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
		users = repository.NewUserRepository(pool)
		products = repository.NewProductRepository(pool)
		checks["postgres"] = pg
	} else {
		logger.Warn("running with in-memory store; data is lost on restart")
		mem := memory.NewStore()
		store, users, products = mem, mem.Users(), mem.Products()
		if cfg.App.SeedDemoData {
			seedDemo(ctx, mem, tokens, logger)
		}
	}

	metrics := observability.NewMetrics()

	var dispatcher events.Dispatcher
	switch cfg.Notification.Driver {
	case config.NotificationDriverRedis:
		dispatcher = events.NewRedisDispatcher(redis.Client, events.RedisDispatcherConfig{
			Queue:       cfg.Notification.Queue,
			MaxAttempts: cfg.Notification.MaxAttempts,
			PopTimeout:  cfg.Notification.PopTimeout(),
		}, logger)
	default:
		dispatcher = events.NewInMemoryDispatcher()
	}

	notificationService := service.NewNotificationService(dispatcher, users, mailer.New(cfg.SMTP, logger), metrics, logger)
	workerDone := worker.StartNotificationWorker(ctx, notificationService, dispatcher, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		ProductRepo: products,
		Notifier:    notificationService,
		Logger:      logger,
	})

	authMiddleware := auth.NewAuthMiddleware(tokens, users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
}

// seedDemo fills the in-memory store and logs a bearer token per demo user.
func seedDemo(ctx context.Context, mem *memory.Store, tokens *auth.TokenManager, logger *zap.Logger) {
	data, err := mem.SeedDemo(ctx)
	if err != nil {
		logger.Fatal("failed to seed demo data", zap.Error(err))
	}
	for _, product := range data.Products {
		logger.Info("demo product", zap.String("product_id", product.ID), zap.String("name", product.Name))
	}
	for _, user := range data.Users {
		token, expiresAt, err := tokens.GenerateToken(user.ID, user.Role)
		if err != nil {
			logger.Fatal("failed to issue demo token", zap.String("email", user.Email), zap.Error(err))
		}
		logger.Info("demo user",
			zap.String("email", user.Email),
			zap.String("role", string(user.Role)),
			zap.String("tenant_id", data.Tenant.ID),
			zap.String("token", token),
			zap.Time("expires_at", expiresAt),
		)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
