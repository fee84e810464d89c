package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"DigestFeed/internal/config"
	"DigestFeed/internal/domain"
	"DigestFeed/internal/infrastructure/htmltext"
	"DigestFeed/internal/infrastructure/storage"
	"DigestFeed/internal/logging"
	"DigestFeed/internal/ports"
	"DigestFeed/internal/usecase"
)

// Application wires configs to use cases and owns their resources.
type Application struct {
	cfg     config.Config
	archive *usecase.Archive
	db      *sql.DB
}

// New builds the archive on the configured storage backend.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	policy, err := domain.ParseCategoryPolicy(cfg.Import.CategoryPolicy)
	if err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}

	application := &Application{cfg: cfg}

	var repo ports.DigestRepository
	storageLogger := baseLogger.With("component", "storage."+cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case config.DriverFile, "":
		repo, err = storage.NewFileRepository(cfg.Storage.Dir, storageLogger)
		if err != nil {
			return nil, err
		}
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		application.db = db
		repo = storage.NewSQLRepository(db, storageLogger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q (valid: %s, %s)",
			cfg.Storage.Driver, config.DriverFile, config.DriverSQLite)
	}

	application.archive = usecase.NewArchive(usecase.ArchiveDeps{
		Repository:    repo,
		Snippets:      htmltext.Extractor{},
		Policy:        policy,
		SnippetLength: cfg.Import.SnippetLength,
		Logger:        baseLogger.With("component", "archive"),
	})
	return application, nil
}

// Archive exposes the digest archive use case.
func (a *Application) Archive() *usecase.Archive {
	return a.archive
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
