package main

import (
	"context"
	"fmt"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/database"
	"docintake/internal/database/migration"
	handlers "docintake/internal/http/handler"
	"docintake/internal/http/middleware"
	otelinit "docintake/internal/otel"
	"docintake/internal/policy"
	"docintake/internal/repository/postgres"
	"docintake/internal/service"
	"docintake/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := otelinit.Init(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql).
	// DATABASE_URL is mandatory; a missing value aborts startup.
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	store, err := newBlobStore(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to initialize blob store", zap.Error(err))
	}

	// Initialize repository, validation policy, and service
	docRepo := postgres.NewDocumentPostgres(db)
	pol := policy.Policy{
		MaxFileSizeMB:       cfg.Upload.MaxFileSizeMB,
		AllowedContentTypes: cfg.Upload.AllowedContentTypes,
	}
	docSvc := service.NewDocumentService(store, docRepo, pol)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// The body limit sits above the per-file ceiling so oversized
		// files are rejected by the validation policy with a reason
		// instead of a bare 413.
		BodyLimit: cfg.Upload.MaxRequestBodyMB * 1024 * 1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, docSvc)

	addr := ":" + cfg.Port
	logger.Info("server listening",
		zap.String("addr", addr),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newBlobStore(cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinIO(cfg.MinIO)
	case "", "local":
		return storage.NewLocal(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
