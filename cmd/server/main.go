package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/winiceo/kevio/internal/api"
	"github.com/winiceo/kevio/internal/api/handler"
	"github.com/winiceo/kevio/internal/core/events"
	"github.com/winiceo/kevio/internal/core/ports"
	"github.com/winiceo/kevio/internal/core/service"
	mongodb "github.com/winiceo/kevio/internal/infrastructure/db/mongo"
	redisdb "github.com/winiceo/kevio/internal/infrastructure/db/redis"
	"github.com/winiceo/kevio/internal/infrastructure/queue"
	"github.com/winiceo/kevio/internal/pkg/config"
	"github.com/winiceo/kevio/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title           Kevio User Access API
// @version         1.0
// @description     User management with asynchronous role-to-ACL synchronization.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	userRepo := mongodb.NewUserRepository(db)
	roleRepo := mongodb.NewRoleRepository(db)
	appRepo := mongodb.NewAppRepository(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}
	if err := roleRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("role index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	var aclStore ports.ACLStore
	var capReader handler.CapabilityReader
	if cfg.Sync.ACLEnabled {
		store := redisdb.NewACLStore(rdb)
		aclStore = store
		capReader = store
	} else {
		log.Warn().Msg("ACL integration disabled, role changes will not touch the ACL store")
	}

	emitter := events.NewEmitter(log)
	emitter.Subscribe(events.UserUpdated, func(payload any) {
		if p, ok := payload.(events.UserUpdatedPayload); ok {
			log.Info().Str("user_id", p.User.ID).Str("source", p.Source).Msg("user updated")
		}
	})

	resolver := service.NewCapabilityResolver(roleRepo, appRepo, log)
	accessSync := service.NewAccessSync(resolver, aclStore, emitter, log)

	dispatcher := queue.NewDispatcher(cfg.Sync.Workers, accessSync, log)
	dispatcher.Start(ctx)

	userService := service.NewUserService(userRepo, roleRepo, dispatcher, log)
	authService := service.NewAuthService(userService, cfg.JWTSecret, cfg.TokenTTL, log)

	e := api.NewRouter(api.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userService, capReader),
		Health:    handler.NewHealthHandler(db, rdb),
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
