package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zizcon/zizcon-api/internal/api"
	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/config"
	"github.com/zizcon/zizcon-api/internal/database"
	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/repository"
	"github.com/zizcon/zizcon-api/internal/service"
	"github.com/zizcon/zizcon-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting zizcon API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize the local store. A broken store degrades tracking and sync
	// suppression; it must not take authentication down with it.
	var repos *repository.Repositories
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open local store, continuing without it")
	} else {
		defer db.Close()

		migrationsPath := os.Getenv("MIGRATIONS_PATH")
		if migrationsPath == "" {
			migrationsPath = "./migrations"
		}
		if err := db.RunMigrations(migrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		repos = repository.New(db)
	}

	// Upstream clients
	cms := directus.NewClient(cfg.Directus.BaseURL, cfg.Directus.StaticToken, cfg.Directus.Timeout, log)
	sessions := auth.NewSessionAccessor(cfg.Auth0.Domain, cfg.Auth0.ClientID, cfg.Auth0.ClientSecret)

	// Initialize services
	services := service.NewServices(repos, cms, cfg, log)

	// Initialize router
	router := api.NewRouter(services, sessions, cms, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
