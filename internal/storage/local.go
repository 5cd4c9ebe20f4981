package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Local stores objects as flat files under a root directory.
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal returns a Local rooted at root on the OS filesystem.
func NewLocal(root string) (*Local, error) {
	return NewLocalFs(afero.NewOsFs(), root)
}

// NewLocalFs returns a Local on an arbitrary afero filesystem.
func NewLocalFs(fsys afero.Fs, root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := fsys.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &Local{fs: fsys, root: root}, nil
}

func (l *Local) full(p string) (string, error) {
	if err := checkPath(p); err != nil {
		return "", err
	}
	return filepath.Join(l.root, p), nil
}

func (l *Local) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	full, err := l.full(path)
	if err != nil {
		return 0, err
	}
	f, err := l.fs.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = l.fs.Remove(full)
		return 0, err
	}
	return n, nil
}

func (l *Local) Open(_ context.Context, path string) (Object, Info, error) {
	full, err := l.full(path)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := l.fs.Open(full)
	if err != nil {
		return nil, Info{}, mapNotExist(err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Info{}, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, Info{}, ErrNotExist
	}
	return f, Info{Size: st.Size(), ModTime: st.ModTime()}, nil
}

func (l *Local) Stat(_ context.Context, path string) (Info, error) {
	full, err := l.full(path)
	if err != nil {
		return Info{}, err
	}
	st, err := l.fs.Stat(full)
	if err != nil {
		return Info{}, mapNotExist(err)
	}
	if st.IsDir() {
		return Info{}, ErrNotExist
	}
	return Info{Size: st.Size(), ModTime: st.ModTime()}, nil
}

func (l *Local) Remove(_ context.Context, path string) error {
	full, err := l.full(path)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

func mapNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotExist
	}
	return err
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
