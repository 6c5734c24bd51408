package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"drone-deployment-planner/internal/application"
	"drone-deployment-planner/internal/config"
	"drone-deployment-planner/internal/deployment"
	"drone-deployment-planner/internal/infrastructure/clients"
	"drone-deployment-planner/internal/infrastructure/repositories"
	"drone-deployment-planner/internal/infrastructure/storage"
	"drone-deployment-planner/internal/ports"
	"drone-deployment-planner/internal/ports/api"
	"drone-deployment-planner/internal/ports/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		logger = logger.Level(level)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	if err := repositories.InitializeDatabase(db); err != nil {
		logger.Fatal().Err(err).Msg("error initializing database schema")
	}

	operatorRepo := repositories.NewPostgresOperatorRepository(db)
	droneRepo := repositories.NewPostgresDroneRepository(db)
	pinnedRepo := repositories.NewPostgresPinnedDroneRepository(db)
	flightRepo := repositories.NewPostgresFlightRepository(db)

	overlayStorage, err := storage.NewOverlayStorage(
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.Bucket,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("error initializing overlay storage")
	}

	authService := application.NewAuthService(operatorRepo, logger)
	droneService := application.NewDroneService(droneRepo, pinnedRepo)
	flightService := application.NewFlightService(flightRepo, pinnedRepo, overlayStorage, logger)

	var calculationService ports.CalculationService
	if cfg.Services.CalculationURL != "" {
		calculationService = clients.NewCalculationClient(cfg.Services.CalculationURL, logger)
	} else {
		logger.Info().Msg("no calculation service configured, using in-process mock")
		calculationService = clients.NewMockCalculationService(logger)
	}

	var approvalService ports.ApprovalService
	if cfg.Services.ApprovalURL != "" {
		approvalService = clients.NewApprovalClient(cfg.Services.ApprovalURL, logger)
	} else {
		logger.Info().Msg("no approval service configured, using in-process mock")
		approvalService = clients.NewMockApprovalService(logger)
	}

	manager := deployment.NewManager(
		deployment.Collaborators{
			Calculation: calculationService,
			Approval:    approvalService,
			History:     flightService,
		},
		deployment.Timeouts{
			Calculation: cfg.Services.CalculationTimeout,
			Approval:    cfg.Services.ApprovalTimeout,
			Persist:     cfg.Services.PersistTimeout,
		},
		logger,
	)

	authHandler := api.NewAuthHandler(authService, manager)
	droneHandler := api.NewDroneHandler(droneService, authService)
	flightHandler := api.NewFlightHandler(flightService, authService)
	mapHandler := ws.NewMapHandler(manager, authService, droneService, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			authHandler.RegisterRoutes(r)
			droneHandler.RegisterRoutes(r)
			flightHandler.RegisterRoutes(r)

			r.Get("/ws/map", mapHandler.HandleConnection)
		})
	})

	logger.Info().Str("addr", cfg.Server.Addr).Msg("starting server")

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("error starting server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server gracefully stopped")
}
