package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"tunebox/internal/capacity"
	"tunebox/internal/config"
	"tunebox/internal/database"
	"tunebox/internal/handlers"
	"tunebox/internal/logging"
	"tunebox/internal/media"
	"tunebox/internal/metrics"
	"tunebox/internal/middleware"
	"tunebox/internal/services"
	"tunebox/internal/tracing"
)

// Version of the application
var Version = "1.0.0"

// APIServer wires configuration, storage and handlers into one fiber app
type APIServer struct {
	app       *fiber.App
	cfg       *config.AppConfig
	logger    *logging.Logger
	dbManager *database.DatabaseManager
	sweeper   *media.Sweeper
	tracer    *tracing.Tracer
}

// NewAPIServer creates the server and mounts every route
func NewAPIServer(cfg *config.AppConfig, logger *logging.Logger, dbManager *database.DatabaseManager) (*APIServer, error) {
	db := dbManager.GetGormDB()
	zl := logger.Zerolog()
	m := metrics.Default()

	staging, err := media.NewStagingStore(cfg.Storage.StagingDir, logger.WithModule("staging"))
	if err != nil {
		return nil, err
	}
	validator := media.NewValidator(cfg.Upload.MaxImageBytes, cfg.Upload.MaxAudioBytes)
	probe := capacity.NewProbe(capacity.Thresholds{
		WarnPercent:  cfg.Storage.DiskWarnPercent,
		AlertPercent: cfg.Storage.DiskAlertPercent,
	}, m)

	authService := services.NewAuthService(db, cfg.JWT.Secret, cfg.JWT.AccessExpiry, logger.WithModule("auth"))
	uploadService := services.NewUploadService(db, validator, m, logger.WithModule("upload"), cfg.Upload.BatchWorkers)

	app := fiber.New(fiber.Config{
		ServerHeader: "Tunebox",
		AppName:      "Tunebox v" + Version,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: handlers.ErrorHandler(zl),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.FiberLoggerMiddleware())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.MetricsMiddleware())
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.CORS.AllowOrigins, ","),
		AllowMethods:     strings.Join(cfg.Server.CORS.AllowMethods, ","),
		AllowHeaders:     strings.Join(cfg.Server.CORS.AllowHeaders, ","),
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
	}))

	h := handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Upload:   handlers.NewUploadHandler(uploadService, staging, zl),
		Catalog:  handlers.NewCatalogHandler(services.NewCatalogService(db, logger.WithModule("catalog"))),
		Playlist: handlers.NewPlaylistHandler(services.NewPlaylistService(db, logger.WithModule("playlist"))),
		Report:   handlers.NewReportHandler(services.NewReportService(db)),
		Health:   handlers.NewHealthHandler(dbManager, probe, staging.Dir(), m),
		Metrics:  handlers.NewMetricsHandler(prometheus.DefaultGatherer),
	}
	handlers.RegisterRoutes(app, h, middleware.NewAuthMiddleware(authService, cfg.JWT.Secret), cfg.RateLimit)

	return &APIServer{
		app:       app,
		cfg:       cfg,
		logger:    logger,
		dbManager: dbManager,
		sweeper:   media.NewSweeper(staging, cfg.Storage.StagingTTL, m, logger.WithModule("sweeper")),
	}, nil
}

// Start runs the staging sweeper and blocks serving HTTP
func (s *APIServer) Start() error {
	if err := s.sweeper.Start(s.cfg.Storage.SweepSchedule); err != nil {
		return err
	}
	// leftovers of a previous run are swept right away
	if _, err := s.sweeper.Sweep(); err != nil {
		s.logger.Zerolog().Warn().Err(err).Msg("Initial staging sweep failed")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Zerolog().Info().Str("addr", addr).Str("version", Version).Msg("Starting API server")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests, then releases the sweeper, tracer and DB
func (s *APIServer) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.sweeper.Stop(ctx)
	if s.tracer != nil {
		if tErr := s.tracer.Shutdown(ctx); tErr != nil {
			s.logger.Zerolog().Warn().Err(tErr).Msg("Failed to flush traces")
		}
	}
	if cErr := s.dbManager.Close(); cErr != nil && err == nil {
		err = cErr
	}
	return err
}

func main() {
	cfg, err := config.NewConfigLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.InitGlobalLogger(logging.LogLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stdout)
	zl := logger.Zerolog()

	dbManager, err := database.NewDatabaseManager(&cfg.Database, logger.WithModule("database"))
	if err != nil {
		zl.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := database.NewMigrationManager(dbManager.GetGormDB(), logger.WithModule("migrations")).Migrate(); err != nil {
		zl.Fatal().Err(err).Msg("Failed to run migrations")
	}
	if err := database.SeedAdmin(dbManager.GetGormDB(), cfg.Admin.Username, cfg.Admin.Password, zl); err != nil {
		zl.Fatal().Err(err).Msg("Failed to seed admin account")
	}

	server, err := NewAPIServer(cfg, logger, dbManager)
	if err != nil {
		zl.Fatal().Err(err).Msg("Failed to create API server")
	}

	if cfg.Tracing.Enabled {
		tracer, err := tracing.NewTracer(cfg.Tracing.ServiceName, nil)
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to initialise tracing")
		}
		server.tracer = tracer
	}

	quit := make(chan os.Signal, 1)
	stopped := make(chan struct{})
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(stopped)
		<-quit
		zl.Info().Msg("Shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			zl.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	if err := server.Start(); err != nil {
		zl.Fatal().Err(err).Msg("Server stopped")
	}
	<-stopped
}
