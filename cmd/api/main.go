// Copyright (c) 2026 XStream Media. All rights reserved.

// Command api is the entry point for the XStream HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers and background workers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xstreamhq/xstream/internal/api"
	"github.com/xstreamhq/xstream/internal/billing/rate"
	"github.com/xstreamhq/xstream/internal/billing/receipt"
	"github.com/xstreamhq/xstream/internal/catalog/video"
	"github.com/xstreamhq/xstream/internal/chat"
	"github.com/xstreamhq/xstream/internal/entitlement"
	"github.com/xstreamhq/xstream/internal/platform/config"
	"github.com/xstreamhq/xstream/internal/platform/constants"
	"github.com/xstreamhq/xstream/internal/platform/migration"
	pgstore "github.com/xstreamhq/xstream/internal/platform/postgres"
	redisstore "github.com/xstreamhq/xstream/internal/platform/redis"
	"github.com/xstreamhq/xstream/internal/platform/sec"
	"github.com/xstreamhq/xstream/internal/users/account"
	"github.com/xstreamhq/xstream/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Application context for background workers (rate limiter cleanup, chat
	// hub, engine reaper). Cancelled during shutdown.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Entitlement Engines ────────────────────────────────────────────
	entitlementStore := entitlement.NewPostgresStore(pool)
	engineManager := entitlement.NewManager(entitlementStore, log, entitlement.EngineConfig{})
	go engineManager.RunReaper(appCtx)

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
		CountEngines: engineManager.EngineCount,
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetTokenRepository := auth.NewResetTokenRepository(rdb)
	authService := auth.NewService(userRepository, sessionRepository, resetTokenRepository, jwtSvc, log)
	authHandler := auth.NewHandler(authService, cfg.IsProduction())

	favoriteRepository := account.NewFavoriteRepository(pool)
	accountService := account.NewService(userRepository, favoriteRepository, log)
	accountHandler := account.NewHandler(accountService, authService)

	videoRepository := video.NewPostgresRepository(pool)
	commentRepository := video.NewCommentRepository(pool)
	viewGuard := video.NewViewGuard(rdb)
	videoService := video.NewService(videoRepository, commentRepository, viewGuard, log)
	videoHandler := video.NewHandler(videoService)

	rateTable := rate.Default()
	receiptRepository := receipt.NewPostgresRepository(pool)
	receiptService := receipt.NewService(receiptRepository, rateTable, engineManager, log)
	receiptHandler := receipt.NewHandler(receiptService)

	entitlementHandler := entitlement.NewHandler(engineManager, entitlementStore, videoService)

	chatHub := chat.NewHub(log)
	go chatHub.Run(appCtx)
	chatHistory := chat.NewRedisHistoryRepository(rdb)
	chatService := chat.NewService(chatHistory, log)
	chatHandler := chat.NewHandler(chatHub, chatService, log)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Auth:        authHandler,
		Account:     accountHandler,
		Video:       videoHandler,
		Receipt:     receiptHandler,
		Entitlement: entitlementHandler,
		Chat:        chatHandler,
	}

	server := api.NewServer(appCtx, cfg, log, jwtSvc, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}

	// Stop background workers, then drain the countdown engines so their
	// final flushes land before the pool closes.
	appCancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := engineManager.Shutdown(drainCtx); err != nil {
		log.Error("engine drain error", slog.Any("error", err))
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
