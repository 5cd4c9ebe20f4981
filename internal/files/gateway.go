// Package files maps owner-scoped filenames onto stored objects and decides
// how they are served.
package files

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"echost/internal/apperr"
	"echost/internal/db"
	"echost/internal/logging"
	"echost/internal/storage"
)

// Store is the part of the credential store the gateway needs.
type Store interface {
	CreateFile(ctx context.Context, owner, filename, path string) error
	RenameFile(ctx context.Context, owner, path, newFilename string) error
	DeleteFile(ctx context.Context, owner, path string) error
	GetPathForFilename(ctx context.Context, owner, filename string) (string, bool, error)
	FindOwnerByPath(ctx context.Context, path string) (string, bool, error)
	ListFiles(ctx context.Context) ([]db.File, error)
	ListFilesByOwner(ctx context.Context, owner string) ([]db.File, error)
}

// Gateway resolves downloads and manages uploads.
type Gateway struct {
	Store     Store
	Storage   storage.Storage
	Whitelist []string
	// DefaultOwner answers lookups that name no owner. Empty disables them.
	DefaultOwner string
	Logger       *slog.Logger
}

// Download is a resolved file ready to be opened.
type Download struct {
	Owner       string
	Filename    string
	Path        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

func (g *Gateway) log() *slog.Logger {
	return logging.OrDiscard(g.Logger)
}

// ValidateFilename rejects names that cannot be used as a single URL path
// segment.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return apperr.Validation("filename is required")
	case name == "." || name == "..":
		return apperr.Validation("invalid filename")
	case strings.ContainsAny(name, "/\\\x00"):
		return apperr.Validation("filename must not contain path separators")
	}
	return nil
}

// ResolveDownload looks up owner's file. A row whose object has vanished is
// reported as not found.
func (g *Gateway) ResolveDownload(ctx context.Context, owner, filename string) (Download, error) {
	if owner == "" || filename == "" {
		return Download{}, apperr.ErrNotFound
	}
	path, ok, err := g.Store.GetPathForFilename(ctx, owner, filename)
	if err != nil {
		return Download{}, err
	}
	if !ok {
		return Download{}, apperr.ErrNotFound
	}

	info, err := g.Storage.Stat(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidPath) {
			g.log().WarnContext(ctx, "file row without stored object",
				"owner", owner, "filename", filename, "path", path)
			return Download{}, apperr.ErrNotFound
		}
		return Download{}, apperr.Storage("stat object", err)
	}

	return Download{
		Owner:       owner,
		Filename:    filename,
		Path:        path,
		ContentType: ContentType(filename, g.Whitelist),
		Size:        info.Size,
		ModTime:     info.ModTime,
	}, nil
}

// ResolveDefault resolves filename against the default owner.
func (g *Gateway) ResolveDefault(ctx context.Context, filename string) (Download, error) {
	if g.DefaultOwner == "" {
		return Download{}, apperr.ErrNotFound
	}
	return g.ResolveDownload(ctx, g.DefaultOwner, filename)
}

// Open opens the object of a resolved download.
func (g *Gateway) Open(ctx context.Context, d Download) (storage.Object, error) {
	obj, _, err := g.Storage.Open(ctx, d.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("open object", err)
	}
	return obj, nil
}

// Upload stores r as owner's filename and returns the new storage path. An
// existing file of the same name is replaced.
func (g *Gateway) Upload(ctx context.Context, owner, filename string, r io.Reader) (string, error) {
	if owner == "" {
		return "", apperr.Validation("owner is required")
	}
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	path := storage.NewPath()
	n, err := g.Storage.Put(ctx, path, r)
	if err != nil {
		return "", apperr.Storage("put object", err)
	}

	oldPath, exists, err := g.Store.GetPathForFilename(ctx, owner, filename)
	if err != nil {
		g.removeObject(ctx, path)
		return "", err
	}
	if err := g.Store.CreateFile(ctx, owner, filename, path); err != nil {
		g.removeObject(ctx, path)
		return "", err
	}
	if exists {
		if err := g.Store.DeleteFile(ctx, owner, oldPath); err != nil {
			return "", err
		}
		g.removeObject(ctx, oldPath)
	}

	g.log().InfoContext(ctx, "file uploaded",
		"owner", owner, "filename", filename, "path", path, "bytes", n, "replaced", exists)
	return path, nil
}

// Rename changes the name a file is served under. The stored object keeps its
// path.
func (g *Gateway) Rename(ctx context.Context, owner, oldName, newName string) error {
	if err := ValidateFilename(newName); err != nil {
		return err
	}
	path, ok, err := g.Store.GetPathForFilename(ctx, owner, oldName)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	if oldName == newName {
		return nil
	}
	_, taken, err := g.Store.GetPathForFilename(ctx, owner, newName)
	if err != nil {
		return err
	}
	if taken {
		return apperr.ErrFilenameTaken
	}
	if err := g.Store.RenameFile(ctx, owner, path, newName); err != nil {
		return err
	}
	g.log().InfoContext(ctx, "file renamed", "owner", owner, "from", oldName, "to", newName)
	return nil
}

// Delete removes owner's file and its stored object.
func (g *Gateway) Delete(ctx context.Context, owner, filename string) error {
	path, ok, err := g.Store.GetPathForFilename(ctx, owner, filename)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	if err := g.Store.DeleteFile(ctx, owner, path); err != nil {
		return err
	}
	if err := g.Storage.Remove(ctx, path); err != nil {
		return apperr.Storage("remove object", err)
	}
	g.log().InfoContext(ctx, "file deleted", "owner", owner, "filename", filename, "path", path)
	return nil
}

// List returns owner's files, or every file when owner is empty.
func (g *Gateway) List(ctx context.Context, owner string) ([]db.File, error) {
	if owner == "" {
		return g.Store.ListFiles(ctx)
	}
	return g.Store.ListFilesByOwner(ctx, owner)
}

func (g *Gateway) removeObject(ctx context.Context, path string) {
	if err := g.Storage.Remove(ctx, path); err != nil {
		g.log().WarnContext(ctx, "could not remove object", "path", path, "err", err)
	}
}
