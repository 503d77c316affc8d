package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/cache"
	"github.com/pesio-ai/be-fleet-transport/internal/client"
	"github.com/pesio-ai/be-fleet-transport/internal/config"
	"github.com/pesio-ai/be-fleet-transport/internal/database"
	"github.com/pesio-ai/be-fleet-transport/internal/handler"
	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/middleware"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
	"github.com/pesio-ai/be-fleet-transport/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Fleet Transport Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Optional redis read cache
	var byteCache cache.BytesCache = cache.NopCache{}
	if cfg.Redis.Addr != "" {
		rc := cache.New(cfg.Redis.Addr)
		defer rc.Close()
		byteCache = rc
		log.Info().Str("redis_addr", cfg.Redis.Addr).Msg("Redis cache enabled")
	}

	// Optional NATS event publishing
	natsClient, err := client.ConnectNATS(cfg.NATS.URL, cfg.Service.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer natsClient.Close()
	if natsClient != nil {
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("NATS event publishing enabled")
	}
	publisher := client.NewNotificationPublisher(natsClient, log.Logger)

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	tripRepo := repository.NewTripRepository(db)
	gateLogRepo := repository.NewGateLogRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	// Initialize services
	requestService := service.NewRequestService(requestRepo, activityRepo, byteCache, cfg.Redis.CurrentTTL, publisher, log)
	tripService := service.NewTripService(tripRepo, activityRepo, byteCache, cfg.Redis.CurrentTTL, publisher, log)
	gateService := service.NewGateService(gateLogRepo, penaltyRepo, tripRepo, settingsRepo, activityRepo, publisher, log)
	claimService := service.NewClaimService(claimRepo, activityRepo, publisher, log)
	settingsService := service.NewSettingsService(settingsRepo, activityRepo, log)
	activityService := service.NewActivityService(activityRepo, log)

	// Initialize handlers
	requestHandler := handler.NewRequestHandler(requestService, log)
	tripHandler := handler.NewTripHandler(tripService, log)
	gateHandler := handler.NewGateHandler(gateService, log)
	claimHandler := handler.NewClaimHandler(claimService, log)
	settingsHandler := handler.NewSettingsHandler(settingsService, activityService, log)

	// Setup HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(&log.Logger))
	r.Use(middleware.Recovery(&log.Logger))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`)) //nolint:errcheck
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/requests", requestHandler.Routes)
		r.Route("/trips", tripHandler.Routes)
		r.Route("/gate-logs", gateHandler.GateLogRoutes)
		r.Route("/penalties", gateHandler.PenaltyRoutes)
		r.Route("/claims", claimHandler.Routes)
		r.Route("/settings", settingsHandler.SettingsRoutes)
		r.Route("/activity-logs", settingsHandler.ActivityRoutes)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
