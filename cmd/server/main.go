package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/launchkit-dev/launchkit/internal/auth"
	"github.com/launchkit-dev/launchkit/internal/config"
	"github.com/launchkit-dev/launchkit/internal/database"
	"github.com/launchkit-dev/launchkit/internal/logger"
	"github.com/launchkit-dev/launchkit/internal/metrics"
	"github.com/launchkit-dev/launchkit/internal/models"
	"github.com/launchkit-dev/launchkit/internal/server"
	"github.com/launchkit-dev/launchkit/internal/storage"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		// Flush WAL writes
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	secret, err := auth.ResolveSecret(db, cfg.Auth.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve auth secret")
	}
	if cfg.Server.FormSecret == "" {
		cfg.Server.FormSecret = auth.DeriveKey(secret, "form-session")
	}

	authService, err := auth.New(db, auth.Options{
		Secret:            secret,
		EmailAndPassword:  cfg.Auth.EmailAndPassword,
		ExpiresIn:         cfg.Auth.ExpiresIn,
		UpdateAge:         cfg.Auth.UpdateAge,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		MaxPasswordLength: cfg.Auth.MaxPasswordLength,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth")
	}

	store, err := storage.NewMinIO(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		// Uploads fail until the bucket exists; everything else works
		log.Warn().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("Object storage not ready")
	}
	cancel()

	var queue server.TaskEnqueuer
	if cfg.Redis.Address != "" {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		})
		defer func() {
			if err := asynqClient.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing Asynq client")
			}
		}()
		queue = asynqClient
	} else {
		log.Info().Msg("No Redis address configured, background tasks run inline")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(cfg, log, version, server.Dependencies{
		DB:       db,
		Auth:     authService,
		Store:    store,
		Queue:    queue,
		Metrics:  metrics.NewCollector(reg),
		Gatherer: reg,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Msg("Starting launchkit server...")

	// Start HTTP server (this blocks until shutdown)
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}
}
