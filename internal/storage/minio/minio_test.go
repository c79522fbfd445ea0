package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-media-hub/internal/config"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты для пакета minio:
// - поднимают MinIO через testcontainers-go и создают бакет;
// - проверяют New (наличие бакета, endpoint без схемы), Upload (ключ,
//   публичный URL, ограничения типа/размера) и Delete (свои/чужие URL).
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/minio -v -race -count=1

const (
	rootUser     = "root"
	rootPassword = "rootpass"
	bucket       = "media"
)

type minioEnv struct {
	endpoint string
	admin    *mclient.Client
}

func startMinio(t *testing.T, createBucket bool) minioEnv {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image: "docker.io/minio/minio:latest",
		Env: map[string]string{
			"MINIO_ROOT_USER":     rootUser,
			"MINIO_ROOT_PASSWORD": rootPassword,
		},
		Cmd:          []string{"server", "/data"},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	admin, err := mclient.New(host+":"+port.Port(), &mclient.Options{
		Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
	})
	require.NoError(t, err)

	if createBucket {
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{Region: "us-east-1"}))
	}

	return minioEnv{endpoint: fmt.Sprintf("http://%s:%s", host, port.Port()), admin: admin}
}

func s3Config(endpoint, publicBase string) config.S3Config {
	return config.S3Config{
		Endpoint:      endpoint,
		RootUser:      rootUser,
		RootPassword:  rootPassword,
		Bucket:        bucket,
		PublicBaseURL: publicBase,
	}
}

var limits = config.AssetsConfig{
	MaxSizeBytes:        1 << 10,
	AllowedContentTypes: []string{"image/png", "image/jpeg"},
}

func pngAsset(n int) storage.Asset {
	return storage.Asset{
		Body:        bytes.NewReader(bytes.Repeat([]byte{0x42}, n)),
		Size:        int64(n),
		ContentType: "image/png",
	}
}

func TestIntegration_New_BucketMustExist(t *testing.T) {
	env := startMinio(t, false)

	_, err := New(context.Background(), s3Config(env.endpoint, ""), limits)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestIntegration_New_EndpointWithoutScheme_OK(t *testing.T) {
	env := startMinio(t, true)

	st, err := New(context.Background(), s3Config(strings.TrimPrefix(env.endpoint, "http://"), ""), limits)
	require.NoError(t, err)
	require.Equal(t, env.endpoint+"/"+bucket, st.baseURL)
}

func TestIntegration_Upload_And_Delete_OK(t *testing.T) {
	env := startMinio(t, true)
	ctx := context.Background()

	st, err := New(ctx, s3Config(env.endpoint, "http://cdn.local/"), limits)
	require.NoError(t, err)

	uid := uuid.New()
	url, err := st.Upload(ctx, uid, models.ImageCover, pngAsset(16))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://cdn.local/cover-image/"+uid.String()+"/"), url)
	require.True(t, strings.HasSuffix(url, ".png"), url)

	key := strings.TrimPrefix(url, "http://cdn.local/")
	obj, err := env.admin.GetObject(ctx, bucket, key, mclient.GetObjectOptions{})
	require.NoError(t, err)
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.Len(t, body, 16)

	info, err := env.admin.StatObject(ctx, bucket, key, mclient.StatObjectOptions{})
	require.NoError(t, err)
	require.Equal(t, "image/png", info.ContentType)

	require.NoError(t, st.Delete(ctx, url))

	_, err = env.admin.StatObject(ctx, bucket, key, mclient.StatObjectOptions{})
	require.Error(t, err)
	require.Equal(t, "NoSuchKey", mclient.ToErrorResponse(err).Code)
}

func TestIntegration_Upload_InvalidArgs(t *testing.T) {
	env := startMinio(t, true)
	ctx := context.Background()

	st, err := New(ctx, s3Config(env.endpoint, ""), limits)
	require.NoError(t, err)

	uid := uuid.New()

	gif := pngAsset(4)
	gif.ContentType = "image/gif"
	_, err = st.Upload(ctx, uid, models.ImageAvatar, gif)
	require.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = st.Upload(ctx, uid, models.ImageAvatar, pngAsset(int(limits.MaxSizeBytes)+1))
	require.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = st.Upload(ctx, uid, models.ImageAvatar, storage.Asset{ContentType: "image/png"})
	require.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestIntegration_Delete_ForeignURL_Ignored(t *testing.T) {
	env := startMinio(t, true)
	ctx := context.Background()

	st, err := New(ctx, s3Config(env.endpoint, "http://cdn.local"), limits)
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, ""))
	require.NoError(t, st.Delete(ctx, "https://elsewhere.example/avatar.png"))
	require.NoError(t, st.Delete(ctx, "http://cdn.local/"))
}

func TestKeyFromURL(t *testing.T) {
	t.Parallel()

	st := &AssetStore{baseURL: "http://cdn.local/media"}

	key, ok := st.keyFromURL("http://cdn.local/media/avatar/u/1.png")
	require.True(t, ok)
	require.Equal(t, "avatar/u/1.png", key)

	for _, url := range []string{"", "http://cdn.local/media/", "http://cdn.local/other/x.png", "http://cdn.local/media-x/a.png"} {
		_, ok := st.keyFromURL(url)
		require.False(t, ok, url)
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".jpg", extension("image/jpeg"))
	require.Equal(t, ".png", extension("image/png"))
	require.Equal(t, ".webp", extension("image/webp"))
	require.Empty(t, extension("application/octet-stream"))
}
