package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemLocal(t *testing.T) (*Local, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	l, err := NewLocalFs(fsys, "/uploads")
	require.NoError(t, err)
	return l, fsys
}

func TestLocalPutOpenRemove(t *testing.T) {
	l, _ := newMemLocal(t)
	ctx := context.Background()
	p := NewPath()

	n, err := l.Put(ctx, p, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	obj, info, err := l.Open(ctx, p)
	require.NoError(t, err)
	defer obj.Close()
	assert.EqualValues(t, 5, info.Size)

	b, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = obj.Seek(1, io.SeekStart)
	require.NoError(t, err)

	st, err := l.Stat(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 5, st.Size)

	require.NoError(t, l.Remove(ctx, p))
	_, _, err = l.Open(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)
	_, err = l.Stat(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)

	// removing twice is fine
	assert.NoError(t, l.Remove(ctx, p))
}

func TestLocalPutReplaces(t *testing.T) {
	l, _ := newMemLocal(t)
	ctx := context.Background()

	_, err := l.Put(ctx, "abc", strings.NewReader("first version"))
	require.NoError(t, err)
	_, err = l.Put(ctx, "abc", strings.NewReader("v2"))
	require.NoError(t, err)

	obj, _, err := l.Open(ctx, "abc")
	require.NoError(t, err)
	defer obj.Close()
	b, _ := io.ReadAll(obj)
	assert.Equal(t, "v2", string(b))
}

func TestLocalRejectsTraversal(t *testing.T) {
	l, _ := newMemLocal(t)
	ctx := context.Background()

	for _, p := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`, "a\x00b"} {
		_, err := l.Put(ctx, p, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, "Put(%q)", p)
		_, _, err = l.Open(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidPath, "Open(%q)", p)
		assert.ErrorIs(t, l.Remove(ctx, p), ErrInvalidPath, "Remove(%q)", p)
	}
}

func TestLocalListSkipsDirectories(t *testing.T) {
	l, fsys := newMemLocal(t)
	ctx := context.Background()

	_, err := l.Put(ctx, "b", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = l.Put(ctx, "a", strings.NewReader("2"))
	require.NoError(t, err)
	require.NoError(t, fsys.MkdirAll("/uploads/sub", 0o750))

	got, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, _, err = l.Open(ctx, "sub")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalPutCanceled(t *testing.T) {
	l, fsys := newMemLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Put(ctx, "abc", strings.NewReader("data"))
	require.Error(t, err)

	exists, _ := afero.Exists(fsys, "/uploads/abc")
	assert.False(t, exists, "partial object must be removed")
}

func TestNewPathIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		p := NewPath()
		require.NoError(t, checkPath(p))
		require.False(t, seen[p])
		seen[p] = true
	}
}

func TestNewLocalRequiresRoot(t *testing.T) {
	_, err := NewLocalFs(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}
