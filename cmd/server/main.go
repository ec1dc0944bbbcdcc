package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopmesh/commerce-api/internal/api"
	"github.com/shopmesh/commerce-api/internal/api/handler"
	"github.com/shopmesh/commerce-api/internal/core/password"
	"github.com/shopmesh/commerce-api/internal/core/service"
	"github.com/shopmesh/commerce-api/internal/core/token"
	"github.com/shopmesh/commerce-api/internal/infrastructure/config"
	mongodb "github.com/shopmesh/commerce-api/internal/infrastructure/db/mongo"
	redisdb "github.com/shopmesh/commerce-api/internal/infrastructure/db/redis"
	"github.com/shopmesh/commerce-api/internal/infrastructure/queue"
	"github.com/shopmesh/commerce-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Missing secrets are a fatal configuration error, not a runtime one.
		fallback := logger.Init(logger.Options{})
		fallback.Fatal().Err(err).Msg("configuration invalid")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb unavailable")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer func() { _ = rdb.Close() }()

	userRepo := mongodb.NewUserRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("creating user indexes failed")
	}

	// --- Audit pipeline ---
	auditService := service.NewAuditLogService(mongodb.NewAuditRepository(db), log)
	dispatcher := queue.NewDispatcher(cfg.Auth.AuditWorkers, auditService, log)
	dispatcher.Start(ctx)

	// --- Core services ---
	issuer := token.NewIssuer(token.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	limiter := redisdb.NewLoginLimiter(rdb, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginFailureWindow)
	sessions := service.NewSessionService(userRepo, password.NewHasher(), issuer, limiter, dispatcher, log)
	users := service.NewUserService(userRepo, log)

	e := api.NewRouter(api.Deps{
		Sessions: sessions,
		Users:    users,
		Cookies:  handler.NewCookiePolicy(cfg.IsProduction(), cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
		Mongo:    db,
		Redis:    rdb,
		Logger:   log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
