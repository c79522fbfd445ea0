// minio предоставляет реализацию storage.AssetStore на базе MinIO/S3.
// minio.go - конструктор клиента: нормализует endpoint, настраивает
// Secure/creds и проверяет наличие бакета.
// assets.go - загрузка и удаление изображений профиля.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-media-hub/internal/config"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// AssetStore - адаптер MinIO для аватаров и обложек.
type AssetStore struct {
	client  *mclient.Client
	bucket  string
	baseURL string
	limits  config.AssetsConfig
}

// New создает клиент MinIO и выполняет fail-fast-проверку бакета.
// Если PublicBaseURL не задан, ссылки строятся как <scheme>://<endpoint>/<bucket>.
func New(ctx context.Context, s3 config.S3Config, limits config.AssetsConfig) (*AssetStore, error) {
	const op = "storage.minio.New"

	endpoint := s3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(s3.RootUser, s3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, s3.Bucket)
	}

	base := strings.TrimRight(s3.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		base = scheme + "://" + endpoint + "/" + s3.Bucket
	}

	return &AssetStore{
		client:  client,
		bucket:  s3.Bucket,
		baseURL: base,
		limits:  limits,
	}, nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.AssetStore = (*AssetStore)(nil)
