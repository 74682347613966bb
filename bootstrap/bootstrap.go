// Package bootstrap wires storage, repositories and services from a Config.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"casedb-backend/config"
	"casedb-backend/repository"
	"casedb-backend/service"
	"casedb-backend/statutes"
	"casedb-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the wired components of one process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Storage  storage.Storage
	Datasets service.DatasetStore
	Listings service.ListingStore
	Runs     *repository.RunRepository
	Pipeline *service.PipelineService
	Search   *service.SearchService

	pool   *pgxpool.Pool
	sqlite *sql.DB
}

// New builds an App. The statute table is loaded from blob storage.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	store, err := storage.NewStorage(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	app.Storage = store
	logger.Info("storage initialized", "type", cfg.StorageType)

	switch cfg.DatasetBackend {
	case config.BackendPostgres:
		pool, err := InitPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		app.pool = pool
		app.Datasets = repository.NewCaseRepository(pool)
		app.Runs = repository.NewRunRepository(pool)
	case config.BackendSQLite:
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		app.sqlite = db
		app.Datasets = repository.NewSQLiteCaseRepository(db)
	default:
		app.Datasets = repository.NewCSVDatasetRepository(store)
	}
	app.Listings = repository.NewCSVListingRepository(store)
	logger.Info("dataset store initialized", "backend", cfg.DatasetBackend)

	resolver, err := statutes.LoadFromStorage(ctx, store, cfg.StatutesPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load statutes: %w", err)
	}
	logger.Info("statute table loaded", "entries", resolver.Len())

	archive := service.NewArchiveSource(store)
	var source service.DocumentSource = archive
	if cfg.FetchMissing {
		source = service.FallbackSource{archive, service.NewHTTPSource(cfg.FetchTimeout, archive, logger)}
	}

	opts := []service.PipelineServiceOption{
		service.WithDatasetStore(app.Datasets),
		service.WithListingStore(app.Listings),
		service.WithDocumentSource(source),
		service.WithResolver(resolver),
		service.WithLogger(logger),
		service.WithConcurrency(cfg.Concurrency),
		service.WithDocumentTimeout(cfg.DocumentTimeout),
		service.WithCriminalOnly(cfg.CriminalOnly),
		service.WithMaxCandidates(cfg.MaxCandidates),
	}
	if app.Runs != nil {
		opts = append(opts, service.WithRunRecorder(app.Runs))
	}
	app.Pipeline = service.NewPipelineService(opts...)
	app.Search = service.NewSearchService(service.WithSearchDataset(app.Datasets))

	return app, nil
}

// Close releases database connections.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqlite != nil {
		a.sqlite.Close()
	}
}

// InitPostgres opens and pings a connection pool.
func InitPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
