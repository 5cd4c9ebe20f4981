//go:build integration

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires Docker. ECHOST_MINIO_TEST_TAG overrides the MinIO image tag.
func TestS3Backend(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not connect to docker")

	tag := os.Getenv("ECHOST_MINIO_TEST_TAG")
	if tag == "" {
		tag = "RELEASE.2024-01-31T20-20-33Z"
	}
	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        tag,
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=minio",
			"MINIO_ROOT_PASSWORD=minio123",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	require.NoError(t, err, "could not start minio")
	t.Cleanup(func() { _ = pool.Purge(res) })

	port := res.GetPort("9000/tcp")
	require.NoError(t, pool.Retry(func() error {
		resp, err := http.Get("http://localhost:" + port + "/minio/health/live")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("minio not ready: %d", resp.StatusCode)
		}
		return nil
	}))

	ctx := context.Background()
	mc, err := minio.New("localhost:"+port, &minio.Options{
		Creds: credentials.NewStaticV4("minio", "minio123", ""),
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, "echost", minio.MakeBucketOptions{}))

	_, err = NewS3(ctx, S3Options{Endpoint: "http://localhost:" + port, AccessKey: "minio", SecretKey: "minio123", Bucket: "missing"})
	require.Error(t, err, "missing bucket must be reported")

	s, err := NewS3(ctx, S3Options{Endpoint: "http://localhost:" + port, AccessKey: "minio", SecretKey: "minio123", Bucket: "echost"})
	require.NoError(t, err)

	p := NewPath()
	n, err := s.Put(ctx, p, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	obj, info, err := s.Open(ctx, p)
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size)
	b, err := io.ReadAll(obj)
	require.NoError(t, err)
	_ = obj.Close()
	assert.Equal(t, "hello", string(b))

	paths, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{p}, paths)

	require.NoError(t, s.Remove(ctx, p))
	_, _, err = s.Open(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)
	_, err = s.Stat(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)
}
