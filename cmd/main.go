package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/previewvault/backend/docs"
	"github.com/previewvault/backend/internal/config"
	"github.com/previewvault/backend/internal/handlers"
	"github.com/previewvault/backend/internal/logger"
	"github.com/previewvault/backend/internal/media"
	"github.com/previewvault/backend/internal/metrics"
	"github.com/previewvault/backend/internal/middleware"
	"github.com/previewvault/backend/internal/repositories"
	"github.com/previewvault/backend/internal/services"
	"github.com/previewvault/backend/internal/storage"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title PreviewVault API
// @version 1.0
// @description Tiered photo and video delivery behind unguessable customer links

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting PreviewVault",
		zap.String("repository", cfg.Repository.Driver),
		zap.String("storage", cfg.Storage.Driver),
	)

	// Initialize repository
	var (
		submissionRepo services.SubmissionRepository
		dbPinger       handlers.Pinger
	)
	switch cfg.Repository.Driver {
	case config.RepositoryMySQL:
		db, err := connectDB(cfg.DSN())
		if err != nil {
			logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := runMigrations(db); err != nil {
			logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
		}

		submissionRepo = repositories.NewSubmissionRepository(db, logger.Logger)
		dbPinger = db
	default:
		logger.Logger.Warn("Using in-memory repository, submissions are lost on restart")
		submissionRepo = repositories.NewMemorySubmissionRepository()
	}

	// Initialize storage
	mediaStore, localFiles, err := newMediaStore(context.Background(), cfg.Storage)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	// Initialize media pipeline
	runner := media.NewExecRunner(cfg.Transcode.FFmpegPath)
	encoder, err := media.NewWatermarkEncoder(runner, cfg.Transcode.WatermarkPath, cfg.Transcode.Preset, cfg.Transcode.CRF, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize watermark encoder", zap.Error(err))
	}
	extractor := media.NewThumbnailExtractor(runner, cfg.Transcode.ThumbnailOffset, cfg.Transcode.ThumbnailWidth, cfg.Transcode.ThumbnailHeight, logger.Logger)
	pool := media.NewPool(cfg.Transcode.Workers)
	defer pool.Close()

	// Initialize services
	ingestService := services.NewIngestService(submissionRepo, mediaStore, encoder, extractor, pool, services.IngestConfig{
		Timeout:        cfg.Transcode.IngestTimeout,
		RetryTranscode: cfg.Transcode.Retry,
		BaseURL:        cfg.Server.BaseURL,
		WorkspaceDir:   cfg.Transcode.WorkspaceDir,
	}, logger.Logger)
	accessService := services.NewAccessService(submissionRepo, logger.Logger)

	// Initialize handlers
	submissionHandler := handlers.NewSubmissionHandler(ingestService, accessService, logger.Logger)
	healthHandler := handlers.NewHealthHandler(dbPinger, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("%s/swagger/doc.json", cfg.Server.BaseURL)),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, time.Minute))
		r.Use(middleware.RequestSizeLimitMiddleware(cfg.Server.MaxUploadSize))

		submissionHandler.RegisterRoutes(r)
		if localFiles != nil {
			handlers.NewMediaHandler(localFiles, accessService, logger.Logger).RegisterRoutes(r)
		}
	})

	// Start server
	// WriteTimeout stays above the ingest timeout so that a slow upload still gets its answer
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Transcode.IngestTimeout + time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown lets running ingestions finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Transcode.IngestTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// newMediaStore builds the configured media store.
// The second result is non-nil only for the local backend, whose files are served by this process.
func newMediaStore(ctx context.Context, cfg config.StorageConfig) (services.MediaStore, handlers.FileOpener, error) {
	switch cfg.Driver {
	case config.StorageS3:
		store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			PublicURL:       cfg.S3.PublicURL,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StorageMinio:
		store, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			PublicURL: cfg.Minio.PublicURL,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		if err := os.MkdirAll(cfg.MediaBasePath, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create media directory: %w", err)
		}
		store := storage.NewLocalStorage(cfg.MediaBasePath, cfg.MediaBaseURL)
		return store, store, nil
	}
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "previewvault_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
