package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"medical-records-service/internal/config"
	"medical-records-service/internal/handlers"
	"medical-records-service/internal/integrations"
	"medical-records-service/internal/middleware"
	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/routes"
	"medical-records-service/internal/services"
	"medical-records-service/internal/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medical-records-service",
		Short: "Medical records, diagnostics and prescriptions API",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("schema up to date")
			return nil
		},
	}
}

// bootstrap loads .env (optional), the configuration and the logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "medical-records-service").Logger()
	if !cfg.IsProduction() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file loaded")
	}
	return cfg, logger, nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	return models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	})
}

func runServer() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	// Repositories
	recordRepo := repositories.NewMedicalRecordRepository(db)
	diseaseRepo := repositories.NewDiseaseRepository(db)
	diagnosticRepo := repositories.NewDiagnosticRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	prescriptionRepo := repositories.NewPrescriptionRepository(db)
	orderRepo := repositories.NewMedicalOrderRepository(db)

	// Upstream services
	client := integrations.NewClient(cfg.Services, logger)
	auditor := integrations.NewAuditor(cfg.Services, logger)

	// File storage
	store := storage.NewStore(cfg.Uploads.Dir, storage.Limits{
		MaxFileSize: cfg.Uploads.MaxFileSize,
		MaxFiles:    cfg.Uploads.MaxFiles,
	}, logger)
	if err := store.EnsureDirs(); err != nil {
		logger.Fatal().Err(err).Msg("failed to create upload directories")
	}

	var janitor *storage.Janitor
	if cfg.Uploads.SweepInterval > 0 {
		janitor, err = storage.NewJanitor(store, documentRepo, cfg.Uploads.SweepInterval, cfg.Uploads.OrphanMaxAge, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule orphan sweep")
		}
		janitor.Start()
	}

	// Services
	recordService := services.NewMedicalRecordService(recordRepo, client, client, client, auditor, logger)
	diagnosticService := services.NewDiagnosticService(recordRepo, diseaseRepo, diagnosticRepo, client, auditor, logger)
	prescriptionService := services.NewPrescriptionService(recordRepo, prescriptionRepo, client, client, auditor, logger)
	pdfService := services.NewPrescriptionPDFService(prescriptionRepo, recordRepo, client, store, logger)
	diseaseService := services.NewDiseaseService(diseaseRepo, auditor)
	documentService := services.NewDocumentService(documentRepo, recordRepo, diagnosticRepo, client, auditor, logger)
	orderService := services.NewMedicalOrderService(orderRepo, recordRepo, client, auditor)
	searchService := services.NewPatientSearchService(diagnosticRepo, client, auditor)

	production := cfg.IsProduction()
	h := routes.Handlers{
		MedicalRecords: handlers.NewMedicalRecordHandler(recordService, production),
		Diagnostics:    handlers.NewDiagnosticHandler(diagnosticService, production),
		Prescriptions:  handlers.NewPrescriptionHandler(prescriptionService, pdfService, production),
		Diseases:       handlers.NewDiseaseHandler(diseaseService, production),
		Documents:      handlers.NewDocumentHandler(documentService, production),
		MedicalOrders:  handlers.NewMedicalOrderHandler(orderService, production),
		LabResults:     handlers.NewLabResultHandler(db, production),
		PatientSearch:  handlers.NewPatientSearchHandler(searchService, production),
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// PDFs and stored files are already compressed.
	router.Use(gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPathsRegexs([]string{
		`^/api/v1/prescriptions/[^/]+/pdf$`,
		`^/api/v1/documents/[^/]+$`,
	})))

	routes.SetupRoutes(router, h, store, cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if janitor != nil {
		janitor.Stop()
	}
	if err := auditor.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("audit events still in flight at shutdown")
	}
	logger.Info().Msg("server stopped")
	return nil
}
