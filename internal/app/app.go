// Package app opens the configured stores and wires the domain services.
// The server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/alimgiray/storyhub/internal/services"
	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/alimgiray/storyhub/internal/storage/blobstore"
	"github.com/alimgiray/storyhub/internal/storage/docstore"
	"github.com/alimgiray/storyhub/pkg/config"
	"github.com/alimgiray/storyhub/pkg/database"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/sirupsen/logrus"
)

type App struct {
	Config   *config.Config
	Docs     storage.DocumentStore
	Blobs    storage.BlobStore
	Services *services.Services

	db *sql.DB
}

// Open connects the stores selected by cfg, builds the services and makes
// sure the projects collection exists
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	docs, err := a.openDocuments(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := openBlobs(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Docs = docs
	a.Blobs = blobs

	opts := services.Options{Concurrency: cfg.Purge.Concurrency}
	if cfg.GitHub.Token != "" {
		opts.Branches = services.NewGitHubService(cfg.GitHub.Token, cfg.GitHub.CacheTTL)
	}
	a.Services = services.New(docs, blobs, opts)

	if err := a.Services.Projects.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize projects collection: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"documents": cfg.Database.Driver,
		"blobs":     cfg.Blob.Backend,
	}).Info("Storage ready")
	return a, nil
}

func (a *App) openDocuments(ctx context.Context) (storage.DocumentStore, error) {
	cfg := a.Config.Database
	switch cfg.Driver {
	case config.BackendFile:
		return docstore.NewOSFileStore(filepath.Join(cfg.DataDir, "documents")), nil
	case config.BackendSQLite, config.BackendPostgres:
		dsn := cfg.Path
		if cfg.Driver == config.BackendPostgres {
			dsn = cfg.URL
		}
		db, err := database.Open(ctx, cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		return docstore.NewSQLStore(db, cfg.Driver), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
}

func openBlobs(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Blob.Backend {
	case config.BackendFile:
		return blobstore.NewOSFileStore(filepath.Join(cfg.Database.DataDir, "blobs")), nil
	case config.BackendS3:
		s3 := cfg.Blob.S3
		return blobstore.NewS3Store(blobstore.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
		})
	}
	return nil, fmt.Errorf("unsupported BLOB_BACKEND %q", cfg.Blob.Backend)
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
