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

	httptransport "github.com/integrity-watch/report-service/internal/api/http"
	"github.com/integrity-watch/report-service/internal/api/http/handlers"
	"github.com/integrity-watch/report-service/internal/auth"
	"github.com/integrity-watch/report-service/internal/cache"
	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/notify"
	"github.com/integrity-watch/report-service/internal/observability"
	"github.com/integrity-watch/report-service/internal/persistence"
	"github.com/integrity-watch/report-service/internal/realtime"
	"github.com/integrity-watch/report-service/internal/repository"
	"github.com/integrity-watch/report-service/internal/repository/memory"
	"github.com/integrity-watch/report-service/internal/service"
	"github.com/integrity-watch/report-service/internal/storage"
	"github.com/integrity-watch/report-service/internal/validation"
	"github.com/integrity-watch/report-service/internal/worker"
)

type repositories struct {
	users     repository.UserRepository
	reports   repository.ReportRepository
	resets    repository.PasswordResetRepository
	analytics repository.AnalyticsRepository
}

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

	metrics := observability.NewMetrics("report_service")

	var (
		mongoDB *persistence.Mongo
		repos   repositories
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		repos = repositories{
			users:     store.Users(),
			reports:   store.Reports(),
			resets:    store.PasswordResets(),
			analytics: store.Analytics(),
		}
	default:
		mongoDB, err = persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			logger.Fatal("failed to connect mongo", zap.Error(err))
		}
		if cfg.Mongo.EnsureIndexes {
			if err := persistence.EnsureIndexes(ctx, mongoDB.DB, logger); err != nil {
				logger.Fatal("failed to ensure indexes", zap.Error(err))
			}
		}
		repos = repositories{
			users:     repository.NewUserRepository(mongoDB.DB),
			reports:   repository.NewReportRepository(mongoDB.DB),
			resets:    repository.NewPasswordResetRepository(mongoDB.DB),
			analytics: repository.NewAnalyticsRepository(mongoDB.DB),
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	var analyticsCache cache.Cache = cache.NewMemoryCache()
	if redis != nil {
		analyticsCache = cache.NewRedisCache(redis.Client)
	}

	evidence, err := storage.NewDiskStore(cfg.Upload, logger)
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	validator := validation.New()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          repos.users,
		PasswordResetRepo: repos.resets,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo: repos.reports,
		UserRepo:   repos.users,
		Evidence:   evidence,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		AnalyticsRepo: repos.analytics,
		Cache:         analyticsCache,
		TTL:           cfg.Analytics.CacheTTL(),
		Metrics:       metrics,
		Logger:        logger,
	})
	userService := service.NewUserService(*cfg, service.UserDependencies{UserRepo: repos.users})
	notificationService := service.NewNotificationService(*cfg, service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   repos.users,
		ReportRepo: repos.reports,
		Mailer:     notify.NewMailer(cfg.App.Name, cfg.Notification, logger),
		Logger:     logger,
	})

	hub := realtime.NewHub(realtime.Options{
		SendBuffer:   cfg.WebSocket.SendBuffer,
		PingInterval: cfg.WebSocket.PingInterval(),
		Authorizer:   reportService,
		Metrics:      metrics,
		Logger:       logger,
	})

	worker.Start(worker.Subscribers{
		Dispatcher:    dispatcher,
		Notifications: notificationService,
		Hub:           hub,
		Analytics:     analyticsService,
		Logger:        logger,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitMB << 20,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, mongoDB, redis),
		Auth:           handlers.NewAuthHandler(authService, validator),
		Reports:        handlers.NewReportsHandler(reportService, validator),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Users:          handlers.NewUsersHandler(userService, validator),
		Socket:         handlers.NewSocketHandler(hub, authMiddleware),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		UploadsDir:     evidence.Dir(),
		RateLimit:      cfg.RateLimit,
	})

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	hub.Shutdown()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	mongoDB.Close(closeCtx)
	redis.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
