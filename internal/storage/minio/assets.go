package minio

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// Upload валидирует тип и размер, кладёт объект под ключ
// "<kind>/<userID>/<uuid><ext>" и возвращает его публичный URL.
func (s *AssetStore) Upload(ctx context.Context, userID uuid.UUID, kind models.ImageKind, asset storage.Asset) (string, error) {
	const op = "storage.minio.Upload"

	if asset.Body == nil || asset.Size <= 0 || asset.Size > s.limits.MaxSizeBytes {
		return "", fmt.Errorf("%s: size %d: %w", op, asset.Size, storage.ErrInvalidArgument)
	}

	if !slices.Contains(s.limits.AllowedContentTypes, asset.ContentType) {
		return "", fmt.Errorf("%s: content type %q: %w", op, asset.ContentType, storage.ErrInvalidArgument)
	}

	key := path.Join(kind.String(), userID.String(), uuid.NewString()+extension(asset.ContentType))

	_, err := s.client.PutObject(ctx, s.bucket, key, asset.Body, asset.Size, mclient.PutObjectOptions{
		ContentType: asset.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete удаляет объект по URL, выданному Upload. Ссылки вне нашего бакета
// и пустые значения игнорируются.
func (s *AssetStore) Delete(ctx context.Context, url string) error {
	const op = "storage.minio.Delete"

	key, ok := s.keyFromURL(url)
	if !ok {
		return nil
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *AssetStore) keyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}

	return key, true
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
