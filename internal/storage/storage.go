// Package storage holds uploaded file contents. Objects are addressed by an
// opaque path generated here, never by anything a user typed.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned when an object is not present in the backend.
var ErrNotExist = errors.New("object does not exist")

// ErrInvalidPath is returned for paths that could escape the storage root.
var ErrInvalidPath = errors.New("invalid object path")

// Info describes a stored object.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Object is an open stored object. It supports seeking so that range
// requests can be served.
type Object interface {
	io.ReadSeekCloser
}

// Storage is implemented by the local filesystem and S3 backends.
type Storage interface {
	// Put writes r under path, replacing any existing object.
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
	Open(ctx context.Context, path string) (Object, Info, error)
	Stat(ctx context.Context, path string) (Info, error)
	// Remove deletes the object. Missing objects are not an error.
	Remove(ctx context.Context, path string) error
	// List returns every object path in the backend.
	List(ctx context.Context) ([]string, error)
}

// NewPath returns a fresh random object path.
func NewPath() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// checkPath rejects empty paths and anything containing a separator.
func checkPath(p string) error {
	if p == "" || p == "." || p == ".." || strings.ContainsAny(p, "/\\\x00") {
		return ErrInvalidPath
	}
	return nil
}
