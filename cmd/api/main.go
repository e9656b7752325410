package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/staff-auth/internal/api/http"
	"github.com/spec-kit/staff-auth/internal/api/http/handlers"
	"github.com/spec-kit/staff-auth/internal/auth"
	"github.com/spec-kit/staff-auth/internal/config"
	"github.com/spec-kit/staff-auth/internal/observability"
	"github.com/spec-kit/staff-auth/internal/persistence"
	"github.com/spec-kit/staff-auth/internal/repository"
	"github.com/spec-kit/staff-auth/internal/service"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	staffRepo := repository.NewStaffRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	sessionService := service.NewSessionService(sessionRepo, redis.Client, logger)
	authService := service.NewAuthService(staffRepo, sessionService, logger)
	sessionMiddleware := auth.NewSessionMiddleware(sessionService, staffRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(pg, redis)
	staffHandler := handlers.NewStaffHandler(authService, sessionService, metrics, cfg.Auth.SessionTTLSeconds)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            healthHandler,
		Staff:             staffHandler,
		SessionMiddleware: sessionMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
