// Package app opens the configured components shared by the echost binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"echost/internal/auth"
	"echost/internal/config"
	"echost/internal/db"
	"echost/internal/files"
	"echost/internal/logging"
	"echost/internal/session"
	"echost/internal/storage"
)

// NewLogger builds the logger described by cfg, writing to w.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		JSON:   cfg.LogFormat == "json",
		Writer: w,
	})
}

// OpenDB opens and migrates the credential store.
func OpenDB(ctx context.Context, cfg *config.Config) (*db.Store, error) {
	store, err := db.Open(ctx, db.Options{Path: cfg.Database, URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// OpenStorage returns the configured blob store.
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case config.StorageLocal:
		return storage.NewLocal(cfg.FileStorage)
	case config.StorageS3:
		return storage.NewS3(ctx, storage.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// Services bundles the domain services built on an opened store.
type Services struct {
	Store    *db.Store
	Sessions *session.Registry
	CSRF     *session.CSRFRegistry
	Auth     *auth.Service
	Files    *files.Gateway
}

// NewServices wires the auth service and file gateway. The registries are
// created but not started.
func NewServices(cfg *config.Config, store *db.Store, blobs storage.Storage, log *slog.Logger) *Services {
	sessions := session.NewRegistry()
	return &Services{
		Store:    store,
		Sessions: sessions,
		CSRF:     session.NewCSRFRegistry(),
		Auth: &auth.Service{
			Store:             store,
			Sessions:          sessions,
			OpenRegistrations: cfg.OpenRegistrations,
			Logger:            log,
		},
		Files: &files.Gateway{
			Store:        store,
			Storage:      blobs,
			Whitelist:    cfg.MimeTypeWhiteList,
			DefaultOwner: cfg.DefaultUser,
			Logger:       log,
		},
	}
}
