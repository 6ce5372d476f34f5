// @title                       Task Tracker API
// @version                     1.0
// @description                 Multi-tenant task tracking with JWT sessions and owner-scoped access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tasktracker/task-api/internal/api"
	"github.com/tasktracker/task-api/internal/api/handler"
	"github.com/tasktracker/task-api/internal/core/service"
	mongodb "github.com/tasktracker/task-api/internal/infrastructure/db/mongo"
	redisdb "github.com/tasktracker/task-api/internal/infrastructure/db/redis"
	"github.com/tasktracker/task-api/internal/infrastructure/queue"
	"github.com/tasktracker/task-api/internal/pkg/config"
	"github.com/tasktracker/task-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "task-api",
	})

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	// --- Audit trail ---
	audit := queue.NewAuditDispatcher(cfg.Tasks.AuditWorkers, mongodb.NewTaskEventRepository(db), logger.Component("audit"))
	audit.Start()

	// --- Services ---
	tokens := service.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	passwords, err := passwordPolicy(cfg.Auth.PasswordListFile)
	if err != nil {
		log.Fatal().Err(err).Msg("password list could not be loaded")
	}
	authService := service.NewAuthService(mongodb.NewIdentityRepository(db), tokens, passwords, logger.Component("auth"))
	taskService := service.NewTaskService(
		mongodb.NewTaskRepository(db),
		redisdb.NewIdempotencyStore(rdb),
		audit,
		service.TaskServiceOptions{
			HideForbidden:   cfg.Tasks.HideForbidden,
			IdempotencyTTL:  cfg.Tasks.IdempotencyTTL,
			IdempotencyWait: cfg.Tasks.IdempotencyWait,
		},
		logger.Component("tasks"),
	)

	e := api.NewRouter(api.Deps{
		Log:          logger.Component("http"),
		AuthService:  authService,
		TaskService:  taskService,
		RoleResolver: service.NewRoleResolver(),
		HealthChecks: map[string]handler.CheckFunc{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	go func() {
		log.Info().Str("port", cfg.Port).Bool("hide_forbidden", cfg.Tasks.HideForbidden).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := audit.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}
}

// passwordPolicy returns the default policy, checking against the list at
// path when one is configured.
func passwordPolicy(path string) (*service.PasswordPolicy, error) {
	if path == "" {
		return service.DefaultPasswordPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	list, err := service.ReadPasswordList(f)
	if err != nil {
		return nil, err
	}
	return service.PasswordPolicyWithList(list), nil
}
