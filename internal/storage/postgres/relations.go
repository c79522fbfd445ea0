package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// Subscribe создаёт ребро подписки; повтор гасится первичным ключом.
func (s *Storage) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.postgres.Subscribe"

	query := `
		INSERT INTO subscriptions(subscriber_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, subscriberID, channelID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Unsubscribe удаляет ребро, если оно есть.
func (s *Storage) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.postgres.Unsubscribe"

	query := `DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`

	if _, err := s.db.Exec(ctx, query, subscriberID, channelID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VideoByID находит видео по ID.
func (s *Storage) VideoByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	const op = "storage.postgres.VideoByID"

	query := `
		SELECT id, owner_id, video_file, thumbnail, title, description,
		       duration, views, is_published, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	var v models.Video
	err := s.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.OwnerID,
		&v.VideoFile,
		&v.Thumbnail,
		&v.Title,
		&v.Description,
		&v.Duration,
		&v.Views,
		&v.IsPublished,
		&v.CreatedAt,
		&v.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &v, nil
}

// ChannelProfile считает подписчиков/подписки коррелированными подзапросами
// и проверяет наличие ребра viewer -> channel через EXISTS.
func (s *Storage) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "storage.postgres.ChannelProfile"

	query := `
		SELECT
			u.id, u.username, u.fullname, u.avatar, u.cover_image, u.created_at,
			(SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id),
			(SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
			EXISTS (
				SELECT 1 FROM subscriptions s
				WHERE s.channel_id = u.id AND s.subscriber_id = $2
			)
		FROM users u
		WHERE u.username = $1
	`

	var p models.ChannelProfile
	err := s.db.QueryRow(ctx, query, username, viewerID).Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.Avatar,
		&p.CoverImage,
		&p.CreatedAt,
		&p.SubscribersCount,
		&p.ChannelsSubscribedToCount,
		&p.IsSubscribed,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// WatchHistory возвращает историю в порядке position с владельцем каждого видео.
// Записи на удалённые видео отбрасываются INNER JOIN'ом.
func (s *Storage) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "storage.postgres.WatchHistory"

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `
		SELECT v.id, v.owner_id, v.video_file, v.thumbnail, v.title, v.description,
		       v.duration, v.views, v.is_published, v.created_at, v.updated_at,
		       o.username, o.fullname, o.avatar
		FROM watch_history h
		JOIN videos v ON v.id = h.video_id
		JOIN users o ON o.id = v.owner_id
		WHERE h.user_id = $1
		ORDER BY h.position
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	history := make([]models.WatchedVideo, 0)
	for rows.Next() {
		var w models.WatchedVideo
		if err := rows.Scan(
			&w.ID,
			&w.OwnerID,
			&w.VideoFile,
			&w.Thumbnail,
			&w.Title,
			&w.Description,
			&w.Duration,
			&w.Views,
			&w.IsPublished,
			&w.CreatedAt,
			&w.UpdatedAt,
			&w.Owner.Username,
			&w.Owner.FullName,
			&w.Owner.Avatar,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		history = append(history, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return history, nil
}
