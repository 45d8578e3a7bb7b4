package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"visit-dashboard-service/internal/config"
	"visit-dashboard-service/internal/logging"

	docsHttp "visit-dashboard-service/internal/documents/adapters/http/fiber"
	docsMemory "visit-dashboard-service/internal/documents/adapters/memory"
	docsRepoPg "visit-dashboard-service/internal/documents/adapters/postgres"
	docsPorts "visit-dashboard-service/internal/documents/core/ports"
	docsUsecase "visit-dashboard-service/internal/documents/core/usecase"

	summaryHttp "visit-dashboard-service/internal/summary/adapters/http/fiber"
	summaryMemory "visit-dashboard-service/internal/summary/adapters/memory"
	summaryRepoPg "visit-dashboard-service/internal/summary/adapters/postgres"
	summaryPorts "visit-dashboard-service/internal/summary/core/ports"
	summaryUsecase "visit-dashboard-service/internal/summary/core/usecase"

	mediaHttp "visit-dashboard-service/internal/media/adapters/http/fiber"
	mediaMemory "visit-dashboard-service/internal/media/adapters/memory"
	mediaS3 "visit-dashboard-service/internal/media/adapters/s3"
	mediaDomain "visit-dashboard-service/internal/media/core/domain"
	mediaPorts "visit-dashboard-service/internal/media/core/ports"
	mediaUsecase "visit-dashboard-service/internal/media/core/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/lib/pq"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"
)

// documentStore is what a store driver provides to the documents and media
// modules.
type documentStore interface {
	docsPorts.DocumentRepositoryPort
	docsPorts.ArrayFieldPort
}

// stores bundles the adapters selected by store.driver.
type stores struct {
	docs    documentStore
	feed    docsPorts.ChangeFeedPort
	summary summaryPorts.SummaryReaderPort
	objects mediaPorts.ObjectStorePort
	close   func() error
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func buildStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{close: func() error { return nil }}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		repo := docsMemory.NewRepository()
		s.docs = repo
		s.feed = repo
		s.summary = summaryMemory.NewSummaryReader(repo)
		logger.Warn("using in-memory store, data is lost on restart")

	default:
		db, err := openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		conn := docsRepoPg.NewSQLDB(db)
		s.docs = docsRepoPg.NewDocumentRepository(conn)
		s.feed = docsRepoPg.NewChangeListener(cfg.Postgres.DSN, logger.Named("listener"))
		s.summary = summaryRepoPg.NewSummaryRepository(conn)
		s.close = db.Close
	}

	if cfg.S3.Bucket != "" {
		objects, err := mediaS3.NewStore(ctx, mediaS3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			_ = s.close()
			return nil, err
		}
		s.objects = objects
	} else {
		logger.Warn("s3.bucket is not set, media is kept in memory")
		s.objects = mediaMemory.NewStore()
	}

	return s, nil
}

type application struct {
	app  *fiber.App
	hub  *docsUsecase.WatchUseCase
	feed docsPorts.ChangeFeedPort
}

func newApplication(cfg *config.Config, s *stores, logger *zap.Logger) *application {
	// Usecases
	collectionUC := docsUsecase.NewCollectionUseCase(s.docs)
	hub := docsUsecase.NewWatchUseCase(collectionUC, logger.Named("watch"))
	summaryUC := summaryUsecase.NewGetSummaryUseCase(s.summary)
	mediaUC := mediaUsecase.NewMediaUseCase(s.objects, s.docs, cfg.Media.PresignTTL, logger.Named("media"))

	// HTTP (Fiber) app + handlers
	app := fiber.New(fiber.Config{
		AppName:   "visit-dashboard",
		BodyLimit: mediaDomain.MaxUploadSize + 1<<20,
	})
	app.Use(recover.New())
	app.Use(logging.RequestLogger(logger.Named("http")))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	documentsHandler := docsHttp.NewDocumentHandler(collectionUC, hub, logger)
	summaryHandler := summaryHttp.NewSummaryHandler(summaryUC, logger)
	mediaHandler := mediaHttp.NewMediaHandler(mediaUC, logger)

	// static segments first so they are not taken for document ids
	cols := app.Group("/collections/:name")
	cols.Get("/", documentsHandler.ListDocuments)
	cols.Post("/", documentsHandler.CreateDocument)
	cols.Get("/stream", documentsHandler.StreamCollection)
	cols.Get("/summary", summaryHandler.GetSummary)
	cols.Put("/order", documentsHandler.ReorderDocuments)
	cols.Post("/bulk", documentsHandler.BulkCreateDocuments)
	cols.Get("/:id", documentsHandler.GetDocument)
	cols.Patch("/:id", documentsHandler.UpdateDocument)
	cols.Delete("/:id", documentsHandler.DeleteDocument)
	cols.Post("/:id/toggle/:field", documentsHandler.ToggleField)
	cols.Post("/:id/media", mediaHandler.UploadMedia)
	cols.Delete("/:id/media", mediaHandler.RemoveMedia)

	app.Get("/media/*", mediaHandler.RedirectMedia)

	// Swagger
	app.Get("/docs/*", fiberSwagger.WrapHandler)

	return &application{app: app, hub: hub, feed: s.feed}
}
