package files

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echost/internal/apperr"
	"echost/internal/db"
	"echost/internal/storage"
)

type fixture struct {
	gw    *Gateway
	store *db.Store
	local *storage.Local
	fs    afero.Fs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := db.Open(ctx, db.Options{Path: filepath.Join(t.TempDir(), "files.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fsys := afero.NewMemMapFs()
	local, err := storage.NewLocalFs(fsys, "/uploads")
	require.NoError(t, err)

	return &fixture{
		gw: &Gateway{
			Store:     store,
			Storage:   local,
			Whitelist: []string{"image/png", "text/plain"},
		},
		store: store,
		local: local,
		fs:    fsys,
	}
}

func (f *fixture) read(t *testing.T, d Download) string {
	t.Helper()
	obj, err := f.gw.Open(context.Background(), d)
	require.NoError(t, err)
	defer obj.Close()
	b, err := io.ReadAll(obj)
	require.NoError(t, err)
	return string(b)
}

func TestUploadAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, "alice", "h"))

	path, err := f.gw.Upload(ctx, "alice", "photo.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.NotContains(t, path, "photo", "storage path must not derive from the filename")

	d, err := f.gw.ResolveDownload(ctx, "alice", "photo.png")
	require.NoError(t, err)
	assert.Equal(t, path, d.Path)
	assert.Equal(t, "image/png", d.ContentType)
	assert.EqualValues(t, 7, d.Size)
	assert.Equal(t, "PNGDATA", f.read(t, d))

	_, err = f.gw.ResolveDownload(ctx, "bob", "photo.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveForcesOctetStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Upload(ctx, "alice", "page.html", strings.NewReader("<script>alert(1)</script>"))
	require.NoError(t, err)

	d, err := f.gw.ResolveDownload(ctx, "alice", "page.html")
	require.NoError(t, err)
	assert.Equal(t, OctetStream, d.ContentType)
}

func TestUploadReplacesSameName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1, err := f.gw.Upload(ctx, "alice", "notes.txt", strings.NewReader("v1"))
	require.NoError(t, err)
	p2, err := f.gw.Upload(ctx, "alice", "notes.txt", strings.NewReader("v2"))
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	d, err := f.gw.ResolveDownload(ctx, "alice", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", f.read(t, d))

	rows, err := f.gw.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = f.local.Stat(ctx, p1)
	assert.ErrorIs(t, err, storage.ErrNotExist, "replaced object should be removed")
}

func TestUploadRejectsBadNames(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := f.gw.Upload(context.Background(), "alice", name, strings.NewReader("x"))
		assert.ErrorIs(t, err, apperr.ErrValidation, "name %q", name)
	}
	objs, _ := f.local.List(context.Background())
	assert.Empty(t, objs)
}

func TestRenameKeepsPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path, err := f.gw.Upload(ctx, "alice", "photo.png", strings.NewReader("img"))
	require.NoError(t, err)
	_, err = f.gw.Upload(ctx, "alice", "other.txt", strings.NewReader("txt"))
	require.NoError(t, err)

	require.NoError(t, f.gw.Rename(ctx, "alice", "photo.png", "holiday.png"))

	_, err = f.gw.ResolveDownload(ctx, "alice", "photo.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	d, err := f.gw.ResolveDownload(ctx, "alice", "holiday.png")
	require.NoError(t, err)
	assert.Equal(t, path, d.Path)

	assert.ErrorIs(t, f.gw.Rename(ctx, "alice", "holiday.png", "other.txt"), apperr.ErrFilenameTaken)
	assert.ErrorIs(t, f.gw.Rename(ctx, "alice", "missing.png", "x.png"), apperr.ErrNotFound)
	assert.ErrorIs(t, f.gw.Rename(ctx, "alice", "holiday.png", "a/b"), apperr.ErrValidation)
	assert.NoError(t, f.gw.Rename(ctx, "alice", "holiday.png", "holiday.png"))
}

func TestMissingObjectIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path, err := f.gw.Upload(ctx, "alice", "notes.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, f.fs.Remove("/uploads/"+path))

	_, err = f.gw.ResolveDownload(ctx, "alice", "notes.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Upload(ctx, "admin", "logo.png", strings.NewReader("img"))
	require.NoError(t, err)

	_, err = f.gw.ResolveDefault(ctx, "logo.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "no default owner configured")

	f.gw.DefaultOwner = "admin"
	d, err := f.gw.ResolveDefault(ctx, "logo.png")
	require.NoError(t, err)
	assert.Equal(t, "admin", d.Owner)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path, err := f.gw.Upload(ctx, "alice", "notes.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, f.gw.Delete(ctx, "alice", "notes.txt"))

	_, err = f.gw.ResolveDownload(ctx, "alice", "notes.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.local.Stat(ctx, path)
	assert.ErrorIs(t, err, storage.ErrNotExist)

	assert.ErrorIs(t, f.gw.Delete(ctx, "alice", "notes.txt"), apperr.ErrNotFound)
}

func TestDeletedUserFilesSurviveUntilSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, "bob", "h"))
	require.NoError(t, f.store.CreateUser(ctx, "alice", "h"))

	bobPath, err := f.gw.Upload(ctx, "bob", "report.txt", strings.NewReader("bob's"))
	require.NoError(t, err)
	alicePath, err := f.gw.Upload(ctx, "alice", "notes.txt", strings.NewReader("alice's"))
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteUser(ctx, "bob"))

	// still served after the user is gone
	d, err := f.gw.ResolveDownload(ctx, "bob", "report.txt")
	require.NoError(t, err)
	assert.Equal(t, "bob's", f.read(t, d))

	// a stray object nobody references
	_, err = f.local.Put(ctx, "strayobject", strings.NewReader("?"))
	require.NoError(t, err)

	res, err := f.gw.Sweep(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bobPath, "strayobject"}, res.RemovedObjects)
	require.Len(t, res.RemovedRows, 1)
	assert.Equal(t, "bob", res.RemovedRows[0].Owner)
	assert.Zero(t, res.Failures)

	_, err = f.gw.ResolveDownload(ctx, "bob", "report.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	d, err = f.gw.ResolveDownload(ctx, "alice", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, alicePath, d.Path)

	// a second sweep finds nothing
	res, err = f.gw.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.RemovedObjects)
	assert.Empty(t, res.RemovedRows)
}

func TestSweepDropsRowsWithoutObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, "alice", "h"))

	path, err := f.gw.Upload(ctx, "alice", "notes.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, f.local.Remove(ctx, path))

	res, err := f.gw.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, res.RemovedRows, 1)
	assert.Equal(t, path, res.RemovedRows[0].Path)
}
